package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upErr, downErr error
	version        uint
	versionErr     error
	forced         int
	calls          []string
}

func (f *fakeMigrator) Up() error   { f.calls = append(f.calls, "up"); return f.upErr }
func (f *fakeMigrator) Down() error { f.calls = append(f.calls, "down"); return f.downErr }
func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, false, f.versionErr
}
func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return nil
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name    string
		m       *fakeMigrator
		command string
		args    []string
		wantErr string
		want    []string
	}{
		{name: "up", m: &fakeMigrator{}, command: "up", want: []string{"up"}},
		{name: "up no change", m: &fakeMigrator{upErr: migrate.ErrNoChange}, command: "up", want: []string{"up"}},
		{name: "up failure", m: &fakeMigrator{upErr: errors.New("dirty")}, command: "up", wantErr: "dirty"},
		{name: "down no change", m: &fakeMigrator{downErr: migrate.ErrNoChange}, command: "down", want: []string{"down"}},
		{name: "version", m: &fakeMigrator{version: 1}, command: "version", want: []string{"version"}},
		{name: "version none", m: &fakeMigrator{versionErr: migrate.ErrNilVersion}, command: "version", want: []string{"version"}},
		{name: "force", m: &fakeMigrator{}, command: "force", args: []string{"1"}, want: []string{"force"}},
		{name: "force without version", m: &fakeMigrator{}, command: "force", wantErr: "requires a version"},
		{name: "force bad version", m: &fakeMigrator{}, command: "force", args: []string{"one"}, wantErr: "invalid version"},
		{name: "unknown", m: &fakeMigrator{}, command: "sideways", wantErr: "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execute(tt.m, tt.command, tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.m.calls)
		})
	}
}

func TestExecute_ForceVersion(t *testing.T) {
	m := &fakeMigrator{}
	require.NoError(t, execute(m, "force", []string{"3"}))
	assert.Equal(t, 3, m.forced)
}
