package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/elsoutlet/MergeFiles/internal/config"
	"github.com/elsoutlet/MergeFiles/internal/converter"
)

const (
	itemCSV = "Item,Inmar Order #,Quantity,Last Known Price\n" +
		"X1,555,2,10\n"

	altCSV = "Order ID:,,555\n" +
		"Alt Universal Id,Universal Id\n" +
		"X1,123\n"
)

// setup points the globals at a fresh workspace and returns its config.
func setup(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.ArchiveDir = filepath.Join(root, "archive")
	cfg.Output.FilenameFormat = "merged_{order}"
	cfg.Output.CombinedFilename = "combined.xlsx"
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))

	appConfig = cfg
	logger = zap.NewNop()
	inputDir, outputDir, outputFormat = "", "", ""
	dryRun, archiveInputs, writeSummary = false, false, false
	masterFile, dedupe, combinedName = "", false, ""

	t.Cleanup(func() {
		appConfig = nil
		logger = nil
	})
	return cfg
}

func writeInput(t *testing.T, cfg *config.Config, name, body string) string {
	t.Helper()
	path := filepath.Join(cfg.InputDir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	c := &cobra.Command{}
	var out bytes.Buffer
	c.SetOut(&out)
	return c, &out
}

func TestRunMergeWritesCSV(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)
	writeInput(t, cfg, "b_alt.csv", altCSV)

	c, out := testCommand()
	require.NoError(t, runMerge(c, nil))

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "merged_555.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "X1")
	assert.Contains(t, string(data), "000000001236")
	assert.Contains(t, out.String(), "Orders merged:   1")
}

func TestRunMergeBothFormats(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)
	writeInput(t, cfg, "b_alt.csv", altCSV)
	outputFormat = "both"

	c, _ := testCommand()
	require.NoError(t, runMerge(c, nil))

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "merged_555.csv"))

	f, err := excelize.OpenFile(filepath.Join(cfg.OutputDir, "merged_555.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(cfg.Output.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Inmar Order #", rows[0][0])
}

func TestRunMergeDuplicateOrderNames(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)
	writeInput(t, cfg, "b_alt.csv", altCSV)
	writeInput(t, cfg, "c_alt.csv", altCSV)

	c, _ := testCommand()
	require.NoError(t, runMerge(c, nil))

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "merged_555.csv"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "merged_555_2.csv"))
}

func TestRunMergeNothingToMerge(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)

	c, out := testCommand()
	require.NoError(t, runMerge(c, nil))
	assert.Contains(t, out.String(), "Nothing to merge.")
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestRunMergeDryRun(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)
	writeInput(t, cfg, "b_alt.csv", altCSV)
	dryRun = true
	archiveInputs = true

	c, out := testCommand()
	require.NoError(t, runMerge(c, nil))
	assert.Contains(t, out.String(), "merged_555.csv")

	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "merged_555.csv"))
	assert.FileExists(t, filepath.Join(cfg.InputDir, "a_items.csv"))
}

func TestRunMergeArchiveAndSummary(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)
	writeInput(t, cfg, "b_alt.csv", altCSV)
	archiveInputs = true
	writeSummary = true

	c, out := testCommand()
	require.NoError(t, runMerge(c, nil))

	assert.FileExists(t, filepath.Join(cfg.ArchiveDir, "a_items.csv"))
	assert.FileExists(t, filepath.Join(cfg.ArchiveDir, "b_alt.csv"))
	assert.NoFileExists(t, filepath.Join(cfg.InputDir, "a_items.csv"))
	assert.Contains(t, out.String(), "Summary written to")

	matches, err := filepath.Glob(filepath.Join(cfg.OutputDir, "merge_summary_*.txt"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRunMergeArchiveDateSubdirs(t *testing.T) {
	cfg := setup(t)
	cfg.ArchiveInputs = true
	cfg.ArchiveDateSubdirs = true
	writeInput(t, cfg, "a_items.csv", itemCSV)
	writeInput(t, cfg, "b_alt.csv", altCSV)

	c, _ := testCommand()
	require.NoError(t, runMerge(c, nil))

	matches, err := filepath.Glob(filepath.Join(cfg.ArchiveDir, "*", "*", "*", "a_items.csv"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.NoFileExists(t, filepath.Join(cfg.ArchiveDir, "a_items.csv"))
}

func TestRunMergeRejectsUnsupportedExplicitFile(t *testing.T) {
	cfg := setup(t)
	items := writeInput(t, cfg, "a_items.csv", itemCSV)
	notes := writeInput(t, cfg, "notes.txt", "hello")

	c, out := testCommand()
	err := runMerge(c, []string{items, notes})
	require.Error(t, err)
	assert.ErrorIs(t, err, converter.ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "notes.txt")
	assert.NotContains(t, out.String(), "Found")
}

func TestRunMergeExplicitFiles(t *testing.T) {
	cfg := setup(t)
	items := writeInput(t, cfg, "a_items.csv", itemCSV)
	alt := writeInput(t, cfg, "b_alt.csv", altCSV)
	writeInput(t, cfg, "c_alt.csv", altCSV)

	c, _ := testCommand()
	require.NoError(t, runMerge(c, []string{items, alt}))

	assert.FileExists(t, filepath.Join(cfg.OutputDir, "merged_555.csv"))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "merged_555_2.csv"))
}

func TestRunMergeInvalidFormatFlag(t *testing.T) {
	setup(t)
	outputFormat = "pdf"

	c, _ := testCommand()
	err := runMerge(c, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunMergeUnreadableInputFails(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)

	c, _ := testCommand()
	err := runMerge(c, []string{filepath.Join(cfg.InputDir, "a_items.csv"), filepath.Join(cfg.InputDir, "absent.csv")})
	assert.Error(t, err)
}

func TestRunCombineWithMaster(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)
	writeInput(t, cfg, "b_alt.csv", altCSV)
	masterFile = writeInput(t, cfg, "master.csv", "Master\nm1\n")

	c, out := testCommand()
	require.NoError(t, runCombine(c, nil))
	assert.Contains(t, out.String(), "3 rows")

	f, err := excelize.OpenFile(filepath.Join(cfg.OutputDir, "combined.xlsx"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(cfg.Output.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Master"}, rows[0])
	assert.Equal(t, []string{"m1"}, rows[1])
	assert.Equal(t, "X1", rows[2][1])
}

func TestRunCombineNothingToExport(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)

	c, out := testCommand()
	require.NoError(t, runCombine(c, nil))
	assert.Contains(t, out.String(), "Nothing to export.")
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "combined.xlsx"))
}

func TestRunInspect(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", itemCSV)
	writeInput(t, cfg, "b_alt.csv", altCSV)

	c, out := testCommand()
	require.NoError(t, runInspect(c, nil))

	text := out.String()
	assert.Contains(t, text, "a_items.csv")
	assert.Contains(t, text, "Item table:       header row 1, 1 records")
	assert.Contains(t, text, "Order number:     555")
	assert.Contains(t, text, "Alt-id table:     header row 2, 1 records")
	assert.Contains(t, text, "Order ID:         555")
}

func TestRunConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "mergefiles.yaml")
	forceInit = false
	t.Cleanup(func() { forceInit = false })

	c, out := testCommand()
	require.NoError(t, runConfigInit(c, []string{path}))
	assert.Contains(t, out.String(), "Wrote")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Output.Columns, loaded.Output.Columns)

	assert.Error(t, runConfigInit(c, []string{path}), "existing file without --force")

	forceInit = true
	assert.NoError(t, runConfigInit(c, []string{path}))
}

func TestNameSet(t *testing.T) {
	s := newNameSet()
	assert.Equal(t, "a", s.unique("a"))
	assert.Equal(t, "a_2", s.unique("a"))
	assert.Equal(t, "a_3", s.unique("a"))
	assert.Equal(t, "b", s.unique("b"))
}

func TestNameSetSuffixDoesNotCollideWithRealName(t *testing.T) {
	s := newNameSet()
	assert.Equal(t, "merged_555", s.unique("merged_555"))
	assert.Equal(t, "merged_555_2", s.unique("merged_555_2"))
	assert.Equal(t, "merged_555_3", s.unique("merged_555"))

	s = newNameSet()
	assert.Equal(t, "merged_555", s.unique("merged_555"))
	assert.Equal(t, "merged_555_2", s.unique("merged_555"))
	assert.Equal(t, "merged_555_2_2", s.unique("merged_555_2"))
}

func TestRunMergeOrderNamedLikeSuffix(t *testing.T) {
	cfg := setup(t)
	writeInput(t, cfg, "a_items.csv", "Item,Inmar Order #,Quantity\nX1,555_2,1\n")
	writeInput(t, cfg, "b_items.csv", itemCSV)
	writeInput(t, cfg, "c_alt.csv", altCSV)
	writeInput(t, cfg, "d_alt.csv", "Order ID:,,555_2\nAlt Universal Id,Universal Id\nX1,9\n")
	writeInput(t, cfg, "e_alt.csv", altCSV)

	c, _ := testCommand()
	require.NoError(t, runMerge(c, nil))

	for _, name := range []string{"merged_555.csv", "merged_555_2.csv", "merged_555_3.csv"} {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, name))
	}
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "merged_555_2.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "555_2")
}

func TestTrimExt(t *testing.T) {
	assert.Equal(t, "merged_{order}", trimExt("merged_{order}.csv"))
	assert.Equal(t, "merged_{order}", trimExt("merged_{order}.XLSX"))
	assert.Equal(t, "merged_{order}", trimExt("merged_{order}"))
}
