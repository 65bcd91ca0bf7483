// Package rulebooktest provides a small deterministic catalog for tests.
package rulebooktest

import (
	"testing"

	"skaila.com/gamification/internal/rulebook"
)

// ScenarioCatalog uses small numbers so caps, ranks and milestones are easy
// to hit in a handful of awards.
const ScenarioCatalog = `
actions:
  message: {source: message, base_xp: 2}
  chatbot: {source: chatbot, base_xp: 3}
  help: {source: help, base_xp: 5}
  quiz:
    source: quiz
    base_xp: 10
    overrides:
      - flags: [perfect]
        base_xp: 25
caps:
  message: 50
  chatbot: 30
ranks:
  - {name: Base, min_xp: 0, icon: "🌱", color: "#90EE90"}
  - {name: R1, min_xp: 100, icon: "🎖️", color: "#87CEEB"}
  - {name: R2, min_xp: 250, icon: "⚔️", color: "#DDA0DD"}
streak_bonuses:
  7: 150
badges:
  - code: chatty
    name: Chatty
    predicate: {messages_sent: 5}
    reward_xp: 20
challenges:
  - {code: chat-5, name: Chat five, kind: daily, difficulty: easy, objectives: {message: 5}, reward_xp: 100}
  - {code: quiz-2, name: Quiz two, kind: daily, difficulty: easy, objectives: {quiz: 2}, reward_xp: 50}
  - {code: w-easy, name: Weekly easy, kind: weekly, difficulty: easy, objectives: {message: 10}, reward_xp: 60}
  - {code: w-medium, name: Weekly medium, kind: weekly, difficulty: medium, objectives: {quiz: 3}, reward_xp: 80}
  - {code: w-hard, name: Weekly hard, kind: weekly, difficulty: hard, objectives: {help: 2}, reward_xp: 120}
  - {code: class-quiz, name: Class quiz, kind: class, difficulty: medium, objectives: {quiz: 1}, reward_xp: 40}
power_ups:
  - {code: double, name: Double, xp_multiplier: 2.0, duration_minutes: 60}
  - {code: boost, name: Boost, xp_multiplier: 1.5, duration_minutes: 30}
`

// Scenario parses ScenarioCatalog and fails the test on error.
func Scenario(t testing.TB) *rulebook.Rulebook {
	t.Helper()
	return MustParse(t, ScenarioCatalog)
}

func MustParse(t testing.TB, yaml string) *rulebook.Rulebook {
	t.Helper()
	rb, err := rulebook.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return rb
}
