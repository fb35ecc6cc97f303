package converter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/elsoutlet/MergeFiles/internal/tablewriter"
	"github.com/elsoutlet/MergeFiles/internal/types"
)

const (
	itemCSV = "Item,Inmar Order #,Quantity,Last Known Price\n" +
		"X1,555,2,10\n"

	altCSV = "Order ID:,,555\n" +
		"Alt Universal Id,Universal Id\n" +
		"X1,123\n"
)

func src(name, body string) Source {
	return Source{Name: name, Data: []byte(body)}
}

func newTestConverter() *Converter {
	return New(DefaultOptions(), nil)
}

// expectedRow builds a canonical-width row from column name/value pairs.
func expectedRow(kv map[string]string) []string {
	header := tablewriter.ExpectedHeader()
	row := make([]string, len(header))
	for i, h := range header {
		row[i] = kv[h]
	}
	return row
}

func TestMergeEndToEnd(t *testing.T) {
	results, err := newTestConverter().Merge(context.Background(), []Source{
		src("items.csv", itemCSV),
		src("alt.csv", altCSV),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "555", r.Label)
	assert.Equal(t, "items.csv", r.ItemFile)
	assert.Equal(t, "alt.csv", r.AltIDFile)
	assert.Equal(t, 1, r.Records)

	want := [][]string{
		tablewriter.ExpectedHeader(),
		expectedRow(map[string]string{
			"Inmar Order #":    "555",
			"Item":             "X1",
			"Universal ID":     "123",
			"Alt Universal ID": "X1",
			"Actual UPC":       "000000001236",
			"Quantity":         "2",
			"Last Known Price": "10",
			"Extended Price":   "20",
		}),
	}
	if diff := cmp.Diff(want, r.Grid.Strings()); diff != "" {
		t.Fatalf("merged grid mismatch (-want +got):\n%s", diff)
	}

	wantText := strings.Join(want[0], ",") + "\n" + strings.Join(want[1], ",") + "\n"
	assert.Equal(t, wantText, r.Text)
}

func TestMergeIsDeterministic(t *testing.T) {
	files := []Source{
		src("items.csv", "Item,Inmar Order #,Quantity\nB,555,1\nA,555,2\nB,555,3\n"),
		src("alt.csv", "Order ID:,,555\nAlt Universal Id,Universal Id\nA,1\nB,2\n"),
	}

	first, err := newTestConverter().Merge(context.Background(), files)
	require.NoError(t, err)
	second, err := newTestConverter().Merge(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, first, 1)
	assert.Equal(t, first[0].Text, second[0].Text)

	// First-occurrence order: B before A, B's quantities summed.
	assert.Equal(t, "B", first[0].Grid[1][1].String())
	assert.Equal(t, "4", first[0].Grid[1][6].String())
	assert.Equal(t, "A", first[0].Grid[2][1].String())
}

func TestMergeFewerThanTwoFiles(t *testing.T) {
	results, err := newTestConverter().Merge(context.Background(), []Source{src("items.csv", itemCSV)})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = newTestConverter().Merge(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMergeNoMatchingOrder(t *testing.T) {
	results, err := newTestConverter().Merge(context.Background(), []Source{
		src("items.csv", itemCSV),
		src("alt.csv", strings.Replace(altCSV, "555", "999", 1)),
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMergeSkipsItemTableWithoutOrderNumber(t *testing.T) {
	results, err := newTestConverter().Merge(context.Background(), []Source{
		src("items.csv", "Item,Quantity\nX1,2\n"),
		src("alt.csv", altCSV),
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMergeAltTableWithoutOrderIDIsIgnored(t *testing.T) {
	results, err := newTestConverter().Merge(context.Background(), []Source{
		src("items.csv", itemCSV),
		src("alt.csv", "Alt Universal Id,Universal Id\nX1,123\n"),
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMergeEachMatchingAltFileProducesAnEntry(t *testing.T) {
	results, err := newTestConverter().Merge(context.Background(), []Source{
		src("items.csv", itemCSV),
		src("alt1.csv", altCSV),
		src("alt2.csv", strings.Replace(altCSV, "123", "456", 1)),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alt1.csv", results[0].AltIDFile)
	assert.Equal(t, "alt2.csv", results[1].AltIDFile)
	assert.Equal(t, "456", results[1].Grid[1][3].String())
}

func TestMergeOrderIDIgnoresSurroundingSpace(t *testing.T) {
	items := "Item,Inmar Order #,Quantity\nX1, 555 ,1\n"
	results, err := newTestConverter().Merge(context.Background(), []Source{
		src("items.csv", items),
		src("alt.csv", altCSV),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestMergeBothTablesInOneFile(t *testing.T) {
	combined := "Order ID:,,555\n" +
		"Alt Universal Id,Universal Id\n" +
		"X1,123\n" +
		"\n" +
		"Item,Inmar Order #,Quantity,Last Known Price\n" +
		"X1,555,2,10\n"

	results, err := newTestConverter().Merge(context.Background(), []Source{
		src("a.csv", combined),
		src("b.csv", "nothing,here\n"),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.csv", results[0].ItemFile)
	assert.Equal(t, "a.csv", results[0].AltIDFile)
}

func TestMergeDecodeFailureAbortsRun(t *testing.T) {
	_, err := newTestConverter().Merge(context.Background(), []Source{
		src("items.csv", itemCSV),
		src("notes.txt", "hello"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestMergeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := newTestConverter().Merge(ctx, []Source{src("items.csv", itemCSV), src("alt.csv", altCSV)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestMergeHugeQuantitiesDoNotPanic(t *testing.T) {
	items := "Item,Inmar Order #,Quantity,Last Known Price,Liquidation %\n" +
		"X1,555,1.7e308,1,50\n" +
		"X1,555,1.7e308,1,50\n"

	var results []Result
	var err error
	require.NotPanics(t, func() {
		results, err = newTestConverter().Merge(context.Background(), []Source{
			src("items.csv", items),
			src("alt.csv", altCSV),
		})
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Records)
}

func TestMergeCustomColumnsAndBOM(t *testing.T) {
	opts := DefaultOptions()
	opts.Columns = []string{"Item", "Actual UPC"}
	opts.BOM = true

	results, err := New(opts, nil).Merge(context.Background(), []Source{src("items.csv", itemCSV), src("alt.csv", altCSV)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "\xEF\xBB\xBFItem,Actual UPC\nX1,000000001236\n", results[0].Text)
}

func TestCombineMergedFilesNothing(t *testing.T) {
	g, err := newTestConverter().CombineMergedFiles(context.Background(), []Source{src("items.csv", itemCSV)}, nil)
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestCombineMergedFilesWithoutMaster(t *testing.T) {
	g, err := newTestConverter().CombineMergedFiles(context.Background(), []Source{
		src("items.csv", itemCSV),
		src("alt1.csv", altCSV),
		src("alt2.csv", strings.Replace(altCSV, "123", "456", 1)),
	}, nil)
	require.NoError(t, err)
	require.Len(t, g, 3)
	assert.Equal(t, tablewriter.ExpectedHeader(), g[0].Strings())
	assert.Equal(t, "123", g[1][3].String())
	assert.Equal(t, "456", g[2][3].String())
}

func TestCombineMergedFilesMasterFirst(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Master A", "Master B"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"m1", "m2"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	master := Source{Name: "master.xlsx", Data: buf.Bytes()}

	g, err := newTestConverter().CombineMergedFiles(context.Background(), []Source{
		src("items.csv", itemCSV),
		src("alt.csv", altCSV),
	}, &master)
	require.NoError(t, err)

	require.Len(t, g, 3)
	assert.Equal(t, []string{"Master A", "Master B"}, g[0].Strings())
	assert.Equal(t, []string{"m1", "m2"}, g[1].Strings())
	assert.Equal(t, "X1", g[2][1].String())
}

func TestCombineMergedFilesMasterOnly(t *testing.T) {
	master := src("master.csv", "H\nm1\n")
	g, err := newTestConverter().CombineMergedFiles(context.Background(), nil, &master)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"H"}, {"m1"}}, g.Strings())
}

func TestCombineMergedFilesEmptyMaster(t *testing.T) {
	master := src("master.csv", "")
	g, err := newTestConverter().CombineMergedFiles(context.Background(), []Source{
		src("items.csv", itemCSV),
		src("alt.csv", altCSV),
	}, &master)
	require.NoError(t, err)

	require.Len(t, g, 2)
	assert.Equal(t, tablewriter.ExpectedHeader(), g[0].Strings())
	assert.Equal(t, "X1", g[1][1].String())
}

func TestCombineMergedFilesBadMaster(t *testing.T) {
	master := src("master.pdf", "x")
	_, err := newTestConverter().CombineMergedFiles(context.Background(), nil, &master)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestJoin(t *testing.T) {
	item := func(id, qty string) *types.Record {
		r := types.NewRecord(nil)
		r.Set("item", types.String(id))
		r.Set("quantity", types.String(qty))
		r.Set("description", types.String("from item"))
		return r
	}
	alt := func(id, upc string) *types.Record {
		r := types.NewRecord(nil)
		r.Set("alt universal id", types.String(id))
		r.Set("universal id", types.String(upc))
		r.Set("description", types.String("from alt"))
		return r
	}

	items := types.Table{item("X1", "2"), item("X2", "1"), item("X1", "3")}
	alts := types.Table{alt(" X1 ", "03600029145"), alt("X1", "999")}

	merged := Join(items, alts)
	require.Len(t, merged, 1, "X2 has no alt-id row and is dropped")

	m := merged[0]
	assert.Equal(t, "X1", m.Value("alt universal id").String(), "join key restored from item")
	assert.Equal(t, "from alt", m.Value("description").String(), "alt-id wins collisions")
	assert.Equal(t, "036000291452", m.Value("actual upc").String(), "first alt-id match wins")
	assert.Equal(t, float64(5), m.Value("quantity").Num)
	assert.False(t, m.Has("extended price"), "no last known price")

	assert.Equal(t, "2", items[0].Value("quantity").String(), "inputs untouched")
	assert.Equal(t, " X1 ", alts[0].Value("alt universal id").String())
}
