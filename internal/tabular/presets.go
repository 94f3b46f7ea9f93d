package tabular

// Census API column names.
const (
	ColState  = "state"
	ColCounty = "county"
	ColTract  = "tract"
	ColZCTA   = "zip code tabulation area"
	ColName   = "NAME"

	// Decennial P.L. 94-171 total population.
	FieldPopulation = "P1_001N"

	// ACS profile: employment rate (percent), households, poverty rate (percent).
	FieldEmploymentRate = "DP03_0004PE"
	FieldHouseholds     = "DP02_0001E"
	FieldPovertyRate    = "DP03_0128PE"

	// ACS subject: median household income.
	FieldMedianIncome = "S1901_C01_012E"
)

// TractKey is the composite key of tract-level census tables.
var TractKey = []string{ColState, ColCounty, ColTract}

// DecennialPopulation adapts the decennial population table.
func DecennialPopulation() Adapter {
	return Adapter{
		Name:       "population",
		KeyColumns: TractKey,
		Fields:     []string{ColName, FieldPopulation},
	}
}

// ACSProfile adapts the ACS data profile (employment / household) table.
func ACSProfile() Adapter {
	return Adapter{
		Name:       "profile",
		KeyColumns: TractKey,
		Fields:     []string{FieldEmploymentRate, FieldHouseholds, FieldPovertyRate},
	}
}

// ACSSubject adapts the ACS income subject table.
func ACSSubject() Adapter {
	return Adapter{
		Name:       "income",
		KeyColumns: TractKey,
		Fields:     []string{FieldMedianIncome},
	}
}

// ForZCTA returns a copy of a keyed by the ZCTA column instead.
func (a Adapter) ForZCTA() Adapter {
	fields := make([]string, len(a.Fields))
	copy(fields, a.Fields)
	return Adapter{
		Name:       a.Name + "_zcta",
		KeyColumns: []string{ColZCTA},
		Fields:     fields,
	}
}
