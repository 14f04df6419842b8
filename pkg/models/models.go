package models

import (
	"time"
)

// WindingSpecifications is the JSON form of one winding of a three-winding transformer.
type WindingSpecifications struct {
	NomLoad            float64  `json:"nom_load"`
	WindingOilGradient float64  `json:"winding_oil_gradient"`
	HotSpotFac         *float64 `json:"hot_spot_fac,omitempty"`
	TimeConstWindings  *float64 `json:"time_const_windings,omitempty"`
	NomPower           *float64 `json:"nom_power,omitempty"`
}

// Specifications carries the user-facing option names. The losses and the
// surcharge are required, omitted optional fields take the defaults of the
// category.
type Specifications struct {
	LoadLoss         *float64 `json:"load_loss,omitempty"`
	NomLoadSecSide   float64  `json:"nom_load_sec_side"`
	NoLoadLoss       *float64 `json:"no_load_loss,omitempty"`
	AmbTempSurcharge *float64 `json:"amb_temp_surcharge,omitempty"`

	TopOilTempRise     *float64 `json:"top_oil_temp_rise,omitempty"`
	WindingOilGradient *float64 `json:"winding_oil_gradient,omitempty"`
	HotSpotFac         *float64 `json:"hot_spot_fac,omitempty"`
	TimeConstOil       *float64 `json:"time_const_oil,omitempty"`
	TimeConstWindings  *float64 `json:"time_const_windings,omitempty"`
	OilConstK11        *float64 `json:"oil_const_k11,omitempty"`
	WindingConstK21    *float64 `json:"winding_const_k21,omitempty"`
	WindingConstK22    *float64 `json:"winding_const_k22,omitempty"`
	OilExpX            *float64 `json:"oil_exp_x,omitempty"`
	WindingExpY        *float64 `json:"winding_exp_y,omitempty"`
	EndTempReduction   *float64 `json:"end_temp_reduction,omitempty"`

	LVWinding     *WindingSpecifications `json:"lv_winding,omitempty"`
	MVWinding     *WindingSpecifications `json:"mv_winding,omitempty"`
	HVWinding     *WindingSpecifications `json:"hv_winding,omitempty"`
	LoadLossHVLV  float64                `json:"load_loss_hv_lv,omitempty"`
	LoadLossHVMV  float64                `json:"load_loss_hv_mv,omitempty"`
	LoadLossMVLV  float64                `json:"load_loss_mv_lv,omitempty"`
	LoadLossTotal *float64               `json:"load_loss_total,omitempty"`
}

// ONANParameters are the fans-off nameplate values of a switching
// transformer. Omitted fields keep their ONAF value.
type ONANParameters struct {
	NomLoadSecSide     *float64 `json:"nom_load_sec_side,omitempty"`
	LoadLoss           *float64 `json:"load_loss,omitempty"`
	TopOilTempRise     *float64 `json:"top_oil_temp_rise,omitempty"`
	WindingOilGradient *float64 `json:"winding_oil_gradient,omitempty"`
	HotSpotFac         *float64 `json:"hot_spot_fac,omitempty"`
	TimeConstOil       *float64 `json:"time_const_oil,omitempty"`
	TimeConstWindings  *float64 `json:"time_const_windings,omitempty"`
}

// CoolingSwitch selects threshold switching when both temperatures are
// given and schedule switching when fan_on is.
type CoolingSwitch struct {
	ActivationTemp   *float64       `json:"activation_temp,omitempty"`
	DeactivationTemp *float64       `json:"deactivation_temp,omitempty"`
	FanOn            []bool         `json:"fan_on,omitempty"`
	ONANParameters   ONANParameters `json:"onan_parameters"`
}

// Profile is the input series. Load goes in load for two-winding
// transformers and in the per-winding series otherwise.
type Profile struct {
	Timestamps []time.Time `json:"timestamps"`
	Ambient    []float64   `json:"ambient"`
	LoadUnit   string      `json:"load_unit,omitempty"` // "ampere" (default) or "fraction"
	Load       []float64   `json:"load,omitempty"`
	LVLoad     []float64   `json:"lv_load,omitempty"`
	MVLoad     []float64   `json:"mv_load,omitempty"`
	HVLoad     []float64   `json:"hv_load,omitempty"`
	TopOil     []float64   `json:"top_oil,omitempty"`
}

// Calibration asks for the hot-spot factor to be solved before the run.
type Calibration struct {
	Ambient       float64  `json:"ambient"`
	Limit         float64  `json:"limit"`
	HMin          *float64 `json:"hot_spot_fac_min,omitempty"`
	HMax          *float64 `json:"hot_spot_fac_max,omitempty"`
	Method        string   `json:"method,omitempty"`
	Tolerance     *float64 `json:"tolerance,omitempty"`
	MaxIterations int      `json:"max_iterations,omitempty"`
}

// SimulationRequest is the body of POST /simulate.
type SimulationRequest struct {
	ID             string         `json:"id,omitempty"`
	Category       string         `json:"category"`
	Cooler         string         `json:"cooler,omitempty"`
	Specifications Specifications `json:"specifications"`
	CoolingSwitch  *CoolingSwitch `json:"cooling_switch,omitempty"`
	Profile        Profile        `json:"profile"`
	InitialTopOil  *float64       `json:"initial_top_oil,omitempty"`
	InitialLoad    *float64       `json:"initial_load,omitempty"`
	Paper          string         `json:"paper,omitempty"`
	Calibration    *Calibration   `json:"calibration,omitempty"`
	Async          bool           `json:"async,omitempty"`
}

// CalibrationRequest is the body of POST /calibrate.
type CalibrationRequest struct {
	Category       string         `json:"category"`
	Cooler         string         `json:"cooler,omitempty"`
	Specifications Specifications `json:"specifications"`
	Calibration    Calibration    `json:"calibration"`
}

type CalibrationResponse struct {
	HotSpotFactor   float64 `json:"hot_spot_fac"`
	HotSpot         float64 `json:"hot_spot"`
	BoundaryReached bool    `json:"boundary_reached"`
	Boundary        string  `json:"boundary,omitempty"`
	Iterations      int     `json:"iterations"`
	Method          string  `json:"method"`
}

// AgingRequest is the body of POST /aging.
type AgingRequest struct {
	Timestamps []time.Time `json:"timestamps"`
	HotSpot    []float64   `json:"hot_spot"`
	Paper      string      `json:"paper,omitempty"`
}

type AgingResponse struct {
	Paper     string    `json:"paper"`
	AgingRate []float64 `json:"aging_rate"`
	DaysAged  float64   `json:"days_aged"`
}

// SimulationResponse holds the output profiles of one run.
type SimulationResponse struct {
	ID             string               `json:"id"`
	Timestamps     []time.Time          `json:"timestamps"`
	TopOil         []float64            `json:"top_oil"`
	HotSpot        []float64            `json:"hot_spot"`
	WindingHotSpot map[string][]float64 `json:"winding_hot_spot,omitempty"`
	Mode           []string             `json:"cooling_mode"`
	AgingRate      []float64            `json:"aging_rate,omitempty"`
	DaysAged       *float64             `json:"days_aged,omitempty"`
	Calibration    *CalibrationResponse `json:"calibration,omitempty"`
}

// BatchItem is one scenario of a batch with its position.
type BatchItem struct {
	Simulation SimulationRequest `json:"simulation"`
	Iteration  int               `json:"iteration"`
}

// SimulationBatch is the body of POST /simulate/batch.
type SimulationBatch struct {
	BatchID   string      `json:"batch_id"`
	Timestamp time.Time   `json:"timestamp"`
	Scenarios []BatchItem `json:"scenarios"`
}

// WorkItem represents a single simulation task
type WorkItem struct {
	ID        int
	RequestID string
	BatchID   string
	Iteration int
	Request   SimulationRequest
	StartTime time.Time
}

// WorkResult contains the result of one simulation task
type WorkResult struct {
	ID             int
	RequestID      string
	BatchID        string
	Iteration      int
	Response       SimulationResponse
	Err            error
	ProcessingTime time.Duration
	Success        bool
	Category       string
}

// WebhookItem represents a webhook task
type WebhookItem struct {
	RequestID string
	BatchID   string
	Iteration int
	Response  SimulationResponse
	Error     string
}

// ResultSummary condenses a run for webhook consumers.
type ResultSummary struct {
	MaxTopOil      float64 `json:"max_top_oil"`
	MaxHotSpot     float64 `json:"max_hot_spot"`
	MeanHotSpot    float64 `json:"mean_hot_spot"`
	MaxHotSpotTime string  `json:"max_hot_spot_time,omitempty"`
	ONAFShare      float64 `json:"onaf_share"`
	DaysAged       float64 `json:"days_aged,omitempty"`
}

// WebhookResponse represents the webhook payload structure
type WebhookResponse struct {
	ID        string              `json:"id"`
	Time      string              `json:"time"`
	BatchID   string              `json:"batch_id,omitempty"`
	Iteration int                 `json:"iteration"`
	Summary   *ResultSummary      `json:"summary,omitempty"`
	Result    *SimulationResponse `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// ScenarioTiming tracks performance metrics for individual scenario processing
type ScenarioTiming struct {
	Iteration      int           `json:"iteration"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
	MaxHotSpot     float64       `json:"max_hot_spot"`
	Success        bool          `json:"success"`
	Category       string        `json:"category"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
