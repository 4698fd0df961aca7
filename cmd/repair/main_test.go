package main

import (
	"context"
	"testing"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/Dias221467/Social_Graph/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommands(t *testing.T) {
	ctx := context.Background()
	r := jobs.NewReconciler(docstore.NewMemoryStore())

	report, err := run(ctx, r, []string{"fix-followers"})
	require.NoError(t, err)
	assert.IsType(t, jobs.FollowersReport{}, report)

	report, err = run(ctx, r, []string{"all"})
	require.NoError(t, err)
	assert.Contains(t, report, "members")

	_, err = run(ctx, r, []string{"verify"})
	assert.Error(t, err)

	_, err = run(ctx, r, []string{"rebuild"})
	assert.Error(t, err)
}
