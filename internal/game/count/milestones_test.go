package count_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/countbot/internal/game/count"
)

// TestMilestones_Lookup verifies interval matching and precedence.
func TestMilestones_Lookup(t *testing.T) {
	m := count.DefaultMilestones()

	assert.Empty(t, m.Lookup(1))
	assert.Empty(t, m.Lookup(99))
	assert.Equal(t, "The count reached 100!", m.Lookup(100))
	assert.Equal(t, "The count reached 200!", m.Lookup(200))
	assert.Equal(t, "Incredible! The count reached 1000!", m.Lookup(1000),
		"the larger interval wins when both divide the value")
	assert.Empty(t, m.Lookup(0))
	assert.Empty(t, m.Lookup(-100))
}

// TestMilestones_NilReceiver verifies a nil Milestones never announces.
func TestMilestones_NilReceiver(t *testing.T) {
	var m *count.Milestones
	assert.Empty(t, m.Lookup(100))
}

// TestLoadMilestonesFromBytes parses the YAML milestone schema.
func TestLoadMilestonesFromBytes(t *testing.T) {
	m, err := count.LoadMilestonesFromBytes([]byte(`
milestones:
  - every: 50
    message: "Halfway to a hundred: %d"
  - every: 500
    message: "Big one: %d"
`))
	require.NoError(t, err)

	assert.Equal(t, "Halfway to a hundred: 50", m.Lookup(50))
	assert.Equal(t, "Big one: 500", m.Lookup(500), "500 matches both rules, larger interval wins")
	assert.Empty(t, m.Lookup(51))
}

// TestLoadMilestonesFromBytes_Invalid rejects bad intervals and messages.
func TestLoadMilestonesFromBytes_Invalid(t *testing.T) {
	_, err := count.LoadMilestonesFromBytes([]byte("milestones:\n  - every: 0\n    message: x\n"))
	assert.Error(t, err)

	_, err = count.LoadMilestonesFromBytes([]byte("milestones:\n  - every: 10\n    message: \"\"\n"))
	assert.Error(t, err)

	_, err = count.LoadMilestonesFromBytes([]byte("not yaml: ["))
	assert.Error(t, err)
}
