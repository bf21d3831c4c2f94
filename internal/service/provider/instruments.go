package provider

// Instrument identifiers exposed by the API. Providers translate these to
// their own ticker vocabulary.
const (
	InstrumentWTI    = "WTI"
	InstrumentBrent  = "BRENT"
	InstrumentNatGas = "NATGAS"
)

// yahooSymbols maps instruments to Yahoo Finance tickers. Futures use the
// front-month continuous contract.
var yahooSymbols = map[string]string{
	InstrumentWTI:    "CL=F",
	InstrumentBrent:  "BZ=F",
	InstrumentNatGas: "NG=F",
	"HEATOIL":        "HO=F",
	"GASOLINE":       "RB=F",
	"XOM":            "XOM",
	"CVX":            "CVX",
	"COP":            "COP",
	"EOG":            "EOG",
	"SLB":            "SLB",
}

// alphaVantageSymbols maps instruments to Alpha Vantage symbols. The free
// tier has no futures, so only the equity instruments resolve here.
var alphaVantageSymbols = map[string]string{
	"XOM": "XOM",
	"CVX": "CVX",
	"COP": "COP",
	"EOG": "EOG",
	"SLB": "SLB",
}

// resolveSymbol prefers an explicit override, then the provider table, then
// the instrument itself so unlisted tickers still pass through.
func resolveSymbol(instrument string, overrides, table map[string]string) string {
	if s, ok := overrides[instrument]; ok {
		return s
	}
	if s, ok := table[instrument]; ok {
		return s
	}
	return instrument
}
