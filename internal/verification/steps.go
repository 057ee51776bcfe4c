package verification

import (
	"presence/internal/barometer"
	"presence/internal/face"
)

// StepPayload is the sealed set of inputs a client can submit. Each step
// kind carries its own typed payload; adding a step means adding a type
// here and extending the dispatch switch, which the compiler enforces.
type StepPayload interface {
	Step() Step
	sealedStepPayload()
}

// GPSPayload carries the device's reported coordinates.
type GPSPayload struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	AccuracyM *float64 `json:"accuracy,omitempty"`
}

func (GPSPayload) Step() Step         { return StepGPSLocation }
func (GPSPayload) sealedStepPayload() {}

// BarometerPayload carries a raw pressure sample with optional
// environmental compensation inputs.
type BarometerPayload struct {
	PressureHPa     float64              `json:"pressure"`
	TemperatureC    *float64             `json:"temperature,omitempty"`
	HumidityPercent *float64             `json:"humidity,omitempty"`
	Device          barometer.DeviceInfo `json:"device_info"`
}

func (BarometerPayload) Step() Step         { return StepBarometerAltitude }
func (BarometerPayload) sealedStepPayload() {}

// CodePayload carries the scanned QR token verbatim.
type CodePayload struct {
	QRData string `json:"qr_data"`
}

func (CodePayload) Step() Step         { return StepQRCode }
func (CodePayload) sealedStepPayload() {}

// FacePayload carries the on-device face match result for the gate.
type FacePayload struct {
	Match face.MatchInput
}

func (FacePayload) Step() Step         { return StepFaceRecognition }
func (FacePayload) sealedStepPayload() {}
