package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/uniedit/photos/internal/model"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	return cmd, buf
}

func TestPrintDrift(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		cmd, buf := newTestCmd()
		printDrift(cmd, nil)
		assert.Equal(t, "No drift found.\n", buf.String())
	})

	t.Run("rows", func(t *testing.T) {
		cmd, buf := newTestCmd()
		printDrift(cmd, []model.DriftReport{
			{AccountID: "acc", LedgerBytes: 10, ActiveBytes: 4, LedgerCount: 2, ActiveCount: 1},
		})
		assert.Contains(t, buf.String(), "ACCOUNT")
		assert.Regexp(t, `acc\s+10\s+4\s+2\s+1`, buf.String())
	})
}

func TestPrintSweep(t *testing.T) {
	cmd, buf := newTestCmd()
	printSweep(cmd, &model.SweepResult{AccountsProcessed: 2, PurgedCount: 3, ReclaimedDiskBytes: 2048})

	assert.Contains(t, buf.String(), "Purged:    3")
	assert.Contains(t, buf.String(), "Reclaimed: 2 KB")
}

func TestCommandTree(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"migrate", "purge-expired", "audit", "plans"})

	steps := migrateDownCmd.Flags().Lookup("steps")
	if assert.NotNil(t, steps) {
		assert.Equal(t, "1", steps.DefValue)
	}
}
