package models

// Message types carried on the sensor MQTT topic.
const (
	MessageTypeSample       = "sample"
	MessageTypeSessionStart = "session_start"
	MessageTypeSessionEnd   = "session_end"
	MessageTypeSatisfaction = "satisfaction"
)

// SensorMessage is one entry of the JSON array published by a wearable
// bridge on the sensor topic. Sample messages carry one measurement;
// session_start and session_end mark the recording boundaries and carry no
// sensor fields; satisfaction carries the wearer's rating of the night.
type SensorMessage struct {
	MessageID    string  `json:"message_id"` // uuid assigned by the bridge
	DeviceID     string  `json:"device_id"`
	Type         string  `json:"type"` // sample, session_start, session_end, satisfaction
	Timestamp    int64   `json:"timestamp"` // milliseconds since epoch
	HR           int     `json:"hr"`
	ACC          float64 `json:"acc"`
	Gyro         float64 `json:"gyro"`
	BatteryLevel int     `json:"battery_level"`
	RSSILevel    int     `json:"rssi_level"`
	Satisfaction int     `json:"satisfaction"` // rating ordinal, satisfaction messages only
}

// AnalyzeRequest asks the analyzer to recompute one session's hypnogram.
// Published onto the analyze stream when a session closes or on manual
// repair.
type AnalyzeRequest struct {
	SeriesID    int64  `json:"series_id"`
	DeviceID    string `json:"device_id"`
	RequestedAt int64  `json:"requested_at"` // milliseconds since epoch
}
