package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sobootstrap/internal/ir"
)

const nightlyManifest = `
package release

name: "nightly"
targets: {
	python: indent: 4
	javascript: {}
}
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "release.cue"), []byte(content), 0644))
	return dir
}

func requireLoadError(t *testing.T, err error, code string) *LoadError {
	t.Helper()
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, code, loadErr.Code)
	return loadErr
}

func TestLoadManifest(t *testing.T) {
	dir := writeManifest(t, nightlyManifest)

	res, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FileCount)
	assert.Equal(t, "nightly", res.Manifest.Name)
	assert.Equal(t, []ir.TargetConfig{
		{Target: "javascript", Settings: ir.Settings{Indent: 2, Prettify: true}},
		{Target: "python", Settings: ir.Settings{Indent: 4, Prettify: true}},
	}, res.Manifest.Targets)
}

func TestLoadManifestNotFound(t *testing.T) {
	_, err := LoadManifest("/nonexistent/directory/path")
	requireLoadError(t, err, ErrCodeNotFound)
}

func TestLoadManifestNotADirectory(t *testing.T) {
	dir := writeManifest(t, nightlyManifest)
	_, err := LoadManifest(filepath.Join(dir, "release.cue"))
	requireLoadError(t, err, ErrCodeNotFound)
}

func TestLoadManifestNoFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notcue.txt"), []byte("not a cue file"), 0644))

	_, err := LoadManifest(dir)
	requireLoadError(t, err, ErrCodeNoFiles)
}

func TestLoadManifestUnknownTarget(t *testing.T) {
	dir := writeManifest(t, `
package release

name: "bad"
targets: cobol: {}
`)

	_, err := LoadManifest(dir)
	loadErr := requireLoadError(t, err, ErrCodeUnknownTarget)
	assert.True(t, loadErr.Pos.IsValid())
	assert.Contains(t, loadErr.Error(), "release.cue")
}

func TestLoadManifestSchemaViolation(t *testing.T) {
	dir := writeManifest(t, `
package release

name: "bad"
targets: python: indent: -1
`)

	_, err := LoadManifest(dir)
	requireLoadError(t, err, ErrCodeManifestSchema)
}

func TestLoadManifestBuildError(t *testing.T) {
	dir := writeManifest(t, `
package release

name: "a"
name: "b"
`)

	_, err := LoadManifest(dir)
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, []string{ErrCodeBuildFailed, ErrCodeManifestSchema}, loadErr.Code)
}

func TestFindCUEFilesSkipsModuleDir(t *testing.T) {
	dir := writeManifest(t, nightlyManifest)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cue.mod"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cue.mod", "module.cue"), []byte(`module: "example.com/release"`), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "release.cue")}, files)
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeManifestSchema, MapFieldToErrorCode("cue"))
	assert.Equal(t, ErrCodeNoTargets, MapFieldToErrorCode("targets"))
	assert.Equal(t, ErrCodeUnknownTarget, MapFieldToErrorCode("targets.cobol"))
	assert.Equal(t, ErrCodeGeneric, MapFieldToErrorCode("other"))
}
