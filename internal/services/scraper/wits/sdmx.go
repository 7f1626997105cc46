package wits

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// CountryCodelist is the codelist listing WITS reporters and partners.
const CountryCodelist = "CL_COUNTRY_WITS"

// Country is a WITS codelist entry.
type Country struct {
	Code string
	Name string
}

// Observation is one reported yearly rate. Rate is a decimal, so a WITS
// value of 5 percent becomes 0.05.
type Observation struct {
	Year int
	Rate float64
}

type sdmxValue struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

type sdmxName struct {
	Lang string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Text string `xml:",chardata"`
}

type sdmxCode struct {
	ID    string     `xml:"id,attr"`
	Names []sdmxName `xml:"Name"`
}

type sdmxCodelist struct {
	ID    string     `xml:"id,attr"`
	Codes []sdmxCode `xml:"Code"`
}

type sdmxObs struct {
	Dimensions []sdmxValue `xml:"ObsDimension"`
	Value      *sdmxValue  `xml:"ObsValue"`
}

type sdmxSeries struct {
	Key          []sdmxValue `xml:"SeriesKey>Value"`
	Observations []sdmxObs   `xml:"Obs"`
}

// ParseCountries extracts the numeric-coded entries of CL_COUNTRY_WITS.
func ParseCountries(data []byte) ([]Country, error) {
	var (
		countries []Country
		found     bool
	)
	err := walk(data, "Codelist", func(dec *xml.Decoder, start xml.StartElement) error {
		if attr(start, "id") != CountryCodelist {
			return dec.Skip()
		}
		var list sdmxCodelist
		if err := dec.DecodeElement(&list, &start); err != nil {
			return err
		}
		found = true
		for _, code := range list.Codes {
			id := strings.TrimSpace(code.ID)
			if id == "" || !unicode.IsDigit(rune(id[0])) {
				continue
			}
			countries = append(countries, Country{Code: id, Name: englishName(code.Names)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse codelist: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("parse codelist: %s not found", CountryCodelist)
	}
	return countries, nil
}

func englishName(names []sdmxName) string {
	for _, n := range names {
		if n.Lang == "en" && strings.TrimSpace(n.Text) != "" {
			return strings.TrimSpace(n.Text)
		}
	}
	for _, n := range names {
		if text := strings.TrimSpace(n.Text); text != "" {
			return text
		}
	}
	return "Unknown"
}

// ParseTariffs groups generic-data observations by PRODUCTCODE. Observations
// without a usable year are skipped; unparsable values count as zero.
func ParseTariffs(data []byte) (map[string][]Observation, error) {
	out := map[string][]Observation{}
	err := walk(data, "Series", func(dec *xml.Decoder, start xml.StartElement) error {
		var s sdmxSeries
		if err := dec.DecodeElement(&s, &start); err != nil {
			return err
		}
		product := strings.TrimSpace(lookup(s.Key, "PRODUCTCODE"))
		if product == "" {
			return nil
		}
		observations := out[product]
		for _, obs := range s.Observations {
			if obs.Value == nil {
				continue
			}
			year, err := strconv.Atoi(strings.TrimSpace(lookup(obs.Dimensions, "TIME_PERIOD")))
			if err != nil || year < 1 || year > 9999 {
				continue
			}
			percent, err := strconv.ParseFloat(strings.TrimSpace(obs.Value.Value), 64)
			if err != nil {
				percent = 0
			}
			observations = append(observations, Observation{Year: year, Rate: percent * 0.01})
		}
		out[product] = observations
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse tariff data: %w", err)
	}
	return out, nil
}

// walk calls fn for every element named local, in any namespace.
func walk(data []byte, local string, fn func(*xml.Decoder, xml.StartElement) error) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != local {
			continue
		}
		if err := fn(dec, start); err != nil {
			return err
		}
	}
}

func attr(start xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func lookup(values []sdmxValue, id string) string {
	for _, v := range values {
		if v.ID == id {
			return v.Value
		}
	}
	return ""
}
