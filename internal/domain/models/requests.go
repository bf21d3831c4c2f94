package models

// Requests for market analytics HTTP endpoints. Defined in domain for consistency and reuse.

type PricesRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
	Start      string `query:"start" json:"start"`
	End        string `query:"end" json:"end"`
}

type IndicatorsRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
	Names      string `query:"names" json:"names" default:"SMA,EMA,RSI" validate:"required"`
	Window     int    `query:"window" json:"window" default:"14" validate:"gte=2,lte=500"`
	Start      string `query:"start" json:"start"`
	End        string `query:"end" json:"end"`
}

type ForecastRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
	Horizon    int    `query:"horizon" json:"horizon" default:"30" validate:"gte=1,lte=90"`
	Model      string `query:"model" json:"model" default:"random_forest" validate:"oneof=linear random_forest"`
}

type SummaryRequest struct {
	Instrument string `query:"instrument" json:"instrument" validate:"required"`
}

type CorrelationRequest struct {
	Instruments string `query:"instruments" json:"instruments" validate:"required"`
	Start       string `query:"start" json:"start"`
	End         string `query:"end" json:"end"`
}

type AnomaliesRequest struct {
	Instrument string  `query:"instrument" json:"instrument" validate:"required"`
	Threshold  float64 `query:"threshold" json:"threshold" default:"2" validate:"gte=0.5,lte=10"`
	Start      string  `query:"start" json:"start"`
	End        string  `query:"end" json:"end"`
}

type AlertsRequest struct {
	Instrument string `query:"instrument" json:"instrument"`
	Hours      int    `query:"hours" json:"hours" default:"24" validate:"gte=1,lte=720"`
}
