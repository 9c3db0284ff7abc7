package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowgate/internal/workflow/models"
	dErrors "flowgate/pkg/domain-errors"
)

func testTemplate(entityType string) *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		EntityType:     entityType,
		States:         []string{"DRAFT", "DONE"},
		InitialState:   "DRAFT",
		TerminalStates: []string{"DONE"},
		Transitions: []models.Transition{
			{From: "DRAFT", To: "DONE", RequiredRole: models.RoleAny},
		},
	}
}

func TestRegistry(t *testing.T) {
	t.Run("register then get", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register(testTemplate("invoice")))

		got, err := r.Get("invoice")
		require.NoError(t, err)
		assert.Equal(t, "invoice", got.EntityType)
	})

	t.Run("unknown entity type", func(t *testing.T) {
		r := New()
		_, err := r.Get("ghost")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("duplicate entity type", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register(testTemplate("invoice")))
		err := r.Register(testTemplate("invoice"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("invalid template rejected", func(t *testing.T) {
		r := New()
		bad := testTemplate("invoice")
		bad.InitialState = ""
		err := r.Register(bad)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("register after freeze fails", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register(testTemplate("invoice")))
		r.Freeze()
		require.Error(t, r.Register(testTemplate("contract")))
	})
}

func TestSeed(t *testing.T) {
	r := New()
	require.NoError(t, Seed(r))

	for _, entityType := range []string{EntityTypeInvoice, EntityTypeOpportunity, EntityTypeProjectClosure} {
		template, err := r.Get(entityType)
		require.NoError(t, err, entityType)

		// Registration invariant: every transition endpoint belongs to the
		// declared state set.
		for _, tr := range template.Transitions {
			assert.True(t, template.HasState(tr.From), "%s: %s not declared", entityType, tr.From)
			assert.True(t, template.HasState(tr.To), "%s: %s not declared", entityType, tr.To)
		}
		assert.True(t, template.HasState(template.InitialState))
	}

	// Seed freezes the registry.
	require.Error(t, r.Register(testTemplate("extra")))
}

// Registers racing Freeze either land before the freeze or fail; the catalog
// holds exactly the successful ones and nothing slips in afterwards.
func TestRegisterRacingFreeze(t *testing.T) {
	r := New()

	const writers = 20
	results := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = r.Register(testTemplate(fmt.Sprintf("type-%d", idx)))
		}(i)
	}
	r.Freeze()
	wg.Wait()

	registered := 0
	for idx, err := range results {
		if err == nil {
			registered++
			_, getErr := r.Get(fmt.Sprintf("type-%d", idx))
			assert.NoError(t, getErr)
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
			_, getErr := r.Get(fmt.Sprintf("type-%d", idx))
			assert.Error(t, getErr)
		}
	}
	assert.Len(t, r.EntityTypes(), registered)
}

func TestFrozenReadsAreConcurrencySafe(t *testing.T) {
	r := New()
	require.NoError(t, Seed(r))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := r.Get(EntityTypeInvoice)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
