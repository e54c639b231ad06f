package rpc

import (
	"time"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
)

// RiskLevel is the wire enum for classifier risk levels.
type RiskLevel int32

const (
	RiskLevelUnspecified RiskLevel = iota
	RiskLevelLow
	RiskLevelMedium
	RiskLevelHigh
)

func RiskLevelOf(level classifier.RiskLevel) RiskLevel {
	switch level {
	case classifier.RiskLow:
		return RiskLevelLow
	case classifier.RiskMedium:
		return RiskLevelMedium
	case classifier.RiskHigh:
		return RiskLevelHigh
	}
	return RiskLevelUnspecified
}

func (r RiskLevel) String() string {
	switch r {
	case RiskLevelLow:
		return "RISK_LEVEL_LOW"
	case RiskLevelMedium:
		return "RISK_LEVEL_MEDIUM"
	case RiskLevelHigh:
		return "RISK_LEVEL_HIGH"
	}
	return "RISK_LEVEL_UNSPECIFIED"
}

// Classifier maps back to the classifier level; Unspecified maps to "".
func (r RiskLevel) Classifier() classifier.RiskLevel {
	switch r {
	case RiskLevelLow:
		return classifier.RiskLow
	case RiskLevelMedium:
		return classifier.RiskMedium
	case RiskLevelHigh:
		return classifier.RiskHigh
	}
	return ""
}

type PredictNoShowRequest struct {
	PatientID     string                 `json:"patient_id"`
	AppointmentID string                 `json:"appointment_id,omitempty"`
	Features      map[string]interface{} `json:"features"`
}

type NoShowPrediction struct {
	PatientID     string    `json:"patient_id"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	Probability   float64   `json:"probability"`
	RiskLevel     RiskLevel `json:"risk_level"`
}

type PredictTreatmentOutcomeRequest struct {
	PatientID     string                 `json:"patient_id"`
	TreatmentData map[string]interface{} `json:"treatment_data"`
}

type TreatmentOutcome struct {
	PatientID        string  `json:"patient_id"`
	PredictedOutcome string  `json:"predicted_outcome"`
	Confidence       float64 `json:"confidence"`
}

type AssessReadmissionRiskRequest struct {
	PatientID   string                 `json:"patient_id"`
	PatientData map[string]interface{} `json:"patient_data"`
}

type ReadmissionRisk struct {
	PatientID string    `json:"patient_id"`
	RiskScore float64   `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
}

type GetTreatmentRecommendationsRequest struct {
	PatientID string `json:"patient_id"`
	Condition string `json:"condition"`
}

type TreatmentRecommendation struct {
	Treatment  string  `json:"treatment"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

type TreatmentRecommendations struct {
	Recommendations []TreatmentRecommendation `json:"recommendations"`
}

type AnalyzeDrugInteractionsRequest struct {
	PatientID   string   `json:"patient_id"`
	Medications []string `json:"medications"`
}

type DrugInteraction struct {
	Medication1 string    `json:"medication1"`
	Medication2 string    `json:"medication2"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Description string    `json:"description"`
}

type DrugInteractions struct {
	Interactions []DrugInteraction `json:"interactions"`
}

type GetAppointmentNoShowPredictionsRequest struct {
	AppointmentID string    `json:"appointment_id,omitempty"`
	RiskLevel     RiskLevel `json:"risk_level,omitempty"`
	PageSize      int32     `json:"page_size,omitempty"`
	PageToken     string    `json:"page_token,omitempty"`
}

type AppointmentNoShowPrediction struct {
	ID             string    `json:"id"`
	AppointmentID  string    `json:"appointment_id"`
	PredictionTime time.Time `json:"prediction_time"`
	Probability    float64   `json:"probability"`
	RiskLevel      RiskLevel `json:"risk_level"`
}

type GetAppointmentNoShowPredictionsResponse struct {
	Predictions   []AppointmentNoShowPrediction `json:"predictions"`
	NextPageToken string                        `json:"next_page_token,omitempty"`
}

type GetPatientRiskPredictionsRequest struct {
	PatientIDs []string `json:"patient_ids"`
}

type PatientRiskPrediction struct {
	PatientID string    `json:"patient_id"`
	RiskScore float64   `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
}

type GetPatientRiskPredictionsResponse struct {
	Predictions []PatientRiskPrediction `json:"predictions"`
}

type GetResourceUtilizationPredictionsRequest struct {
	FacilityID string    `json:"facility_id"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

type ResourceUtilization struct {
	Resource    string    `json:"resource"`
	Time        time.Time `json:"time"`
	Utilization float64   `json:"utilization"`
}

type GetResourceUtilizationPredictionsResponse struct {
	Predictions []ResourceUtilization `json:"predictions"`
}
