package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"treasure-hunt-system/models"
)

// Within how many meters a submitted location counts as reaching the target.
const locationToleranceMeters = 50.0

const earthRadiusKm = 6371.0

// GeoPoint is a submitted coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ProofPayload is the raw proof a user submits for a step. Only the field
// matching the step's validation type is consulted; the whole payload is
// stored on the StepCompletion for audit.
type ProofPayload struct {
	Location *GeoPoint `json:"location,omitempty"`
	Answer   string    `json:"answer,omitempty"`
	QRCode   string    `json:"qrCode,omitempty"`
}

// ValidateStepProof decides whether proof satisfies the step's requirement.
// Pure: never touches state. Returns the success message on valid proof,
// a *ProofRequiredError when the needed field is absent, a
// *ValidationFailedError when the proof was checked and judged wrong, or a
// plain error for unknown validation types and malformed target values.
func ValidateStepProof(validationType models.StepValidationType, validationValue string, proof ProofPayload) (string, error) {
	switch validationType {
	case models.ValidationTypeLocation:
		if proof.Location == nil {
			return "", &ProofRequiredError{Field: "location data"}
		}
		targetLat, targetLng, err := ParseLatLng(validationValue)
		if err != nil {
			return "", err
		}
		distance := HaversineDistance(proof.Location.Lat, proof.Location.Lng, targetLat, targetLng)
		if distance > locationToleranceMeters {
			return "", &ValidationFailedError{Reason: fmt.Sprintf("Too far from target (%dm away)", int(math.Round(distance)))}
		}
		return "Location validated", nil

	case models.ValidationTypeText:
		if proof.Answer == "" {
			return "", &ProofRequiredError{Field: "answer"}
		}
		if !strings.EqualFold(strings.TrimSpace(proof.Answer), strings.TrimSpace(validationValue)) {
			return "", &ValidationFailedError{Reason: "Incorrect answer"}
		}
		return "Correct answer", nil

	case models.ValidationTypeQRCode:
		if proof.QRCode == "" {
			return "", &ProofRequiredError{Field: "QR code"}
		}
		if proof.QRCode != validationValue {
			return "", &ValidationFailedError{Reason: "Invalid QR code"}
		}
		return "QR code validated", nil

	default:
		return "", fmt.Errorf("unknown validation type %q", validationType)
	}
}

// ParseLatLng parses a "lat,lng" target value.
func ParseLatLng(value string) (float64, float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed location target %q", value)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed latitude in %q", value)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed longitude in %q", value)
	}
	return lat, lng, nil
}

// HaversineDistance returns the great-circle distance between two coordinates
// in meters.
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000
}
