package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "flowgate/pkg/domain-errors"
)

func validTemplate() *WorkflowTemplate {
	return &WorkflowTemplate{
		EntityType:     "invoice",
		States:         []string{"DRAFT", "APPLIED", "APPROVED"},
		InitialState:   "DRAFT",
		TerminalStates: []string{"APPROVED"},
		Transitions: []Transition{
			{From: "DRAFT", To: "APPLIED", RequiredRole: RoleAny},
			{From: "APPLIED", To: "APPROVED", RequiredRole: "approver"},
			{From: "APPLIED", To: "DRAFT", RequiredRole: "approver", RequiresComment: true},
		},
	}
}

func TestTemplateValidate(t *testing.T) {
	t.Run("valid template passes", func(t *testing.T) {
		require.NoError(t, validTemplate().Validate())
	})

	t.Run("missing initial state", func(t *testing.T) {
		tpl := validTemplate()
		tpl.InitialState = ""
		err := tpl.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("undeclared initial state", func(t *testing.T) {
		tpl := validTemplate()
		tpl.InitialState = "NOWHERE"
		require.Error(t, tpl.Validate())
	})

	t.Run("undeclared terminal state", func(t *testing.T) {
		tpl := validTemplate()
		tpl.TerminalStates = []string{"GONE"}
		require.Error(t, tpl.Validate())
	})

	t.Run("transition from undeclared state", func(t *testing.T) {
		tpl := validTemplate()
		tpl.Transitions = append(tpl.Transitions, Transition{From: "LIMBO", To: "DRAFT", RequiredRole: RoleAny})
		require.Error(t, tpl.Validate())
	})

	t.Run("transition to undeclared state", func(t *testing.T) {
		tpl := validTemplate()
		tpl.Transitions = append(tpl.Transitions, Transition{From: "DRAFT", To: "LIMBO", RequiredRole: RoleAny})
		require.Error(t, tpl.Validate())
	})

	t.Run("duplicate transition pair", func(t *testing.T) {
		tpl := validTemplate()
		tpl.Transitions = append(tpl.Transitions, Transition{From: "DRAFT", To: "APPLIED", RequiredRole: "approver"})
		require.Error(t, tpl.Validate())
	})

	t.Run("duplicate state name", func(t *testing.T) {
		tpl := validTemplate()
		tpl.States = append(tpl.States, "DRAFT")
		require.Error(t, tpl.Validate())
	})

	t.Run("no states", func(t *testing.T) {
		tpl := &WorkflowTemplate{EntityType: "empty"}
		require.Error(t, tpl.Validate())
	})
}

func TestTemplateLookups(t *testing.T) {
	tpl := validTemplate()

	assert.True(t, tpl.HasState("DRAFT"))
	assert.False(t, tpl.HasState("LIMBO"))

	assert.True(t, tpl.IsTerminal("APPROVED"))
	assert.False(t, tpl.IsTerminal("DRAFT"))

	tr, ok := tpl.FindTransition("APPLIED", "DRAFT")
	require.True(t, ok)
	assert.True(t, tr.RequiresComment)

	_, ok = tpl.FindTransition("DRAFT", "APPROVED")
	assert.False(t, ok)
}
