package tariffview

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
)

var today = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

var names = Names{"SG": "Singapore", "US": "United States", "CN": "China", "JP": "japan"}

func ptr[T any](v T) *T { return &v }

func tariff(id, origin, dest string, expiry *string, rate float64) apiclient.Tariff {
	return apiclient.Tariff{
		ID:            id,
		OriginCountry: origin,
		DestCountry:   dest,
		EffectiveDate: "2020-01-01",
		ExpiryDate:    expiry,
		AdValoremRate: rate,
		Enabled:       true,
		Products:      []apiclient.Product{{HTSCode: "847130"}, {HTSCode: "851712"}},
	}
}

func sample() []apiclient.Tariff {
	return []apiclient.Tariff{
		tariff("us-old", "SG", "US", ptr("2021-12-31"), 0.1),
		tariff("us-open", "SG", "US", nil, 0.05),
		tariff("us-recent", "SG", "US", ptr("2026-12-31"), 0.07),
		tariff("us-later", "SG", "US", ptr("2027-12-31"), 0.02),
		tariff("jp", "SG", "JP", nil, 0.03),
		tariff("cn", "SG", "CN", ptr("2024-01-01"), 0),
		tariff("into-sg", "US", "SG", nil, 0.09),
	}
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestRowsSortByPartnerThenActivityThenExpiry(t *testing.T) {
	rows := Rows(sample(), names, Query{Origin: "SG", Mode: ModeExport}, today)
	want := []string{"cn", "jp", "us-open", "us-later", "us-recent", "us-old"}
	if diff := cmp.Diff(want, ids(rows)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if !rows[0].Expired || rows[1].Expired {
		t.Fatalf("expired flags = %v %v", rows[0].Expired, rows[1].Expired)
	}
}

func TestRowsHideExpiredAndImportMode(t *testing.T) {
	rows := Rows(sample(), names, Query{Origin: "SG", Mode: ModeExport, HideExpired: true}, today)
	if diff := cmp.Diff([]string{"jp", "us-open", "us-later", "us-recent"}, ids(rows)); diff != "" {
		t.Fatalf("hide expired mismatch (-want +got):\n%s", diff)
	}

	rows = Rows(sample(), names, Query{Origin: "SG", Mode: ModeImport}, today)
	if diff := cmp.Diff([]string{"into-sg"}, ids(rows)); diff != "" {
		t.Fatalf("import mismatch (-want +got):\n%s", diff)
	}
	if rows[0].Partner != "United States" {
		t.Fatalf("partner = %q", rows[0].Partner)
	}
}

func TestSummarizeRoundsAverages(t *testing.T) {
	rows := []Row{
		{AdValoremRate: 0.1, SpecificRate: ptr(1.02)},
		{AdValoremRate: 0.05},
		{AdValoremRate: 0.02333},
	}
	got := Summarize(rows)
	want := Stats{Matches: 3, AvgAdValorem: 0.0578, AvgSpecific: 0.34}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
	if got := Summarize(nil); got != (Stats{}) {
		t.Fatalf("empty stats = %+v", got)
	}
}

func TestBuildPaginatesAndClampsPage(t *testing.T) {
	var tariffs []apiclient.Tariff
	for i := range 45 {
		tariffs = append(tariffs, tariff(fmt.Sprintf("t%02d", i), "SG", "US", nil, 0.01))
	}
	table := Build(tariffs, names, Query{Origin: "SG", Page: 99}, today)
	if table.TotalPages != 3 || table.Query.Page != 3 {
		t.Fatalf("pages = %d page = %d", table.TotalPages, table.Query.Page)
	}
	if len(table.Rows) != 5 || table.First != 41 || table.Last != 45 {
		t.Fatalf("rows = %d first = %d last = %d", len(table.Rows), table.First, table.Last)
	}
	if table.Query.Mode != ModeExport {
		t.Fatalf("mode = %q", table.Query.Mode)
	}

	empty := Build(nil, names, Query{Origin: "SG", Page: -1}, today)
	if empty.TotalPages != 1 || empty.Query.Page != 1 || len(empty.Rows) != 0 {
		t.Fatalf("empty table = %+v", empty)
	}
}

func TestOriginsAreNamesPresentInData(t *testing.T) {
	got := Origins(sample(), names)
	want := []Option{{Code: "SG", Name: "Singapore"}, {Code: "US", Name: "United States"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVQuotesEveryValue(t *testing.T) {
	rows := []Row{{
		From:          `Say "Hi" Land`,
		To:            "United States",
		EffectiveDate: "2024-01-01",
		AdValoremRate: 0.05,
		SpecificRate:  ptr(1.5),
		Products:      []string{"847130", "851712"},
	}}
	want := "from,to,effectiveDate,expiryDate,adValoremRate,specificRate,products\n" +
		`"Say ""Hi"" Land","United States","2024-01-01","","0.05","1.5","847130;851712"`
	if got := string(CSV(rows)); got != want {
		t.Fatalf("csv =\n%s\nwant\n%s", got, want)
	}
}

func TestExportFilenameReplacesWhitespace(t *testing.T) {
	if got := ExportFilename(ModeImport, "United  States of\tAmerica", "csv"); got != "tariffs_import_United_States_of_America.csv" {
		t.Fatalf("filename = %q", got)
	}
}

func TestXLSXRoundTripsRows(t *testing.T) {
	rows := Rows(sample(), names, Query{Origin: "US", Mode: ModeExport}, today)
	data, err := XLSX(rows)
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	got, err := f.GetRows("Tariffs")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want header plus 1", len(got))
	}
	if diff := cmp.Diff(ExportColumns, got[0]); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if got[1][0] != "United States" || got[1][1] != "Singapore" || got[1][6] != "847130;851712" {
		t.Fatalf("row = %v", got[1])
	}
}

func TestHeatmapBuckets(t *testing.T) {
	cells := Heatmap(sample(), names, "SG", today)
	got := make(map[string]HeatCell, len(cells))
	for _, c := range cells {
		got[c.Code] = c
	}
	if _, ok := got["CN"]; ok {
		t.Fatalf("expired lane CN should be excluded")
	}
	us := got["US"]
	if us.Tariffs != 3 || us.AvgAdValorem != 0.0467 || us.Bucket != MaxBucket {
		t.Fatalf("US cell = %+v", us)
	}
	if jp := got["JP"]; jp.Bucket != 3 {
		t.Fatalf("JP cell = %+v", jp)
	}
	if cells[0].Code != "JP" {
		t.Fatalf("first cell = %q, want case-insensitive name order", cells[0].Code)
	}
}
