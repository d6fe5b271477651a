package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var params = Params{Database: "public", Table: "cruise_track"}

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	_, err := Render(t.TempDir(), params)
	assert.ErrorContains(t, err, "GREPTIMEDB_DATASOURCE_UID")
}

func TestRenderMissingTable(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	_, err := Render(t.TempDir(), Params{Database: "public"})
	assert.Error(t, err)
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")

	dir := t.TempDir()
	files, err := Render(dir, params)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "grafana-dashboard.json")}, files)

	b, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, json.Valid(b), "rendered dashboard is not valid JSON")
	assert.Contains(t, string(b), `"uid": "uid1"`)
	assert.Equal(t, 3, strings.Count(string(b), "FROM public.cruise_track"))
}
