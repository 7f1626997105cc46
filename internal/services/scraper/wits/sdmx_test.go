package wits

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const codelistXML = `<?xml version="1.0" encoding="utf-8"?>
<message:Structure xmlns:message="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message"
  xmlns:structure="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/structure"
  xmlns:common="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/common">
  <message:Structures>
    <structure:Codelists>
      <structure:Codelist id="CL_PRODUCTCODE_WITS">
        <structure:Code id="847130"><common:Name xml:lang="en">Laptops</common:Name></structure:Code>
      </structure:Codelist>
      <structure:Codelist id="CL_COUNTRY_WITS">
        <structure:Code id="702"><common:Name xml:lang="fr">Singapour</common:Name><common:Name xml:lang="en">Singapore</common:Name></structure:Code>
        <structure:Code id="840"><common:Name xml:lang="en">United States</common:Name></structure:Code>
        <structure:Code id="EUN"><common:Name xml:lang="en">European Union</common:Name></structure:Code>
        <structure:Code id="999"></structure:Code>
      </structure:Codelist>
    </structure:Codelists>
  </message:Structures>
</message:Structure>`

const tariffXML = `<?xml version="1.0" encoding="utf-8"?>
<message:GenericData xmlns:message="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/message"
  xmlns:generic="http://www.sdmx.org/resources/sdmxml/schemas/v2_1/data/generic">
  <message:DataSet>
    <generic:Series>
      <generic:SeriesKey>
        <generic:Value id="FREQ" value="A"/>
        <generic:Value id="PRODUCTCODE" value="847130"/>
      </generic:SeriesKey>
      <generic:Obs>
        <generic:ObsDimension id="TIME_PERIOD" value="2010"/>
        <generic:ObsValue value="5"/>
      </generic:Obs>
      <generic:Obs>
        <generic:ObsDimension id="TIME_PERIOD" value="2012"/>
        <generic:ObsValue value="n/a"/>
      </generic:Obs>
      <generic:Obs>
        <generic:ObsDimension id="TIME_PERIOD" value="later"/>
        <generic:ObsValue value="7"/>
      </generic:Obs>
      <generic:Obs>
        <generic:ObsDimension id="TIME_PERIOD" value="2014"/>
      </generic:Obs>
    </generic:Series>
    <generic:Series>
      <generic:SeriesKey><generic:Value id="FREQ" value="A"/></generic:SeriesKey>
      <generic:Obs><generic:ObsDimension id="TIME_PERIOD" value="2010"/><generic:ObsValue value="1"/></generic:Obs>
    </generic:Series>
  </message:DataSet>
</message:GenericData>`

func TestParseCountries(t *testing.T) {
	got, err := ParseCountries([]byte(codelistXML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Country{
		{Code: "702", Name: "Singapore"},
		{Code: "840", Name: "United States"},
		{Code: "999", Name: "Unknown"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("countries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCountriesRequiresCodelist(t *testing.T) {
	if _, err := ParseCountries([]byte(`<Structure><Structures/></Structure>`)); err == nil {
		t.Fatal("expected error when the country codelist is missing")
	}
}

func TestParseTariffs(t *testing.T) {
	got, err := ParseTariffs([]byte(tariffXML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string][]Observation{
		"847130": {{Year: 2010, Rate: 0.05}, {Year: 2012, Rate: 0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("observations mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTariffsRejectsMalformedXML(t *testing.T) {
	if _, err := ParseTariffs([]byte(`<GenericData><Series>`)); err == nil {
		t.Fatal("expected error for truncated document")
	}
}
