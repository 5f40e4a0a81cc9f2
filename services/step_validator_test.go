package services

import (
	"errors"
	"math"
	"testing"

	"treasure-hunt-system/models"
)

func TestValidateStepProofText(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		msg, err := ValidateStepProof(models.ValidationTypeText, "lighthouse", textProof("lighthouse"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg != "Correct answer" {
			t.Errorf("unexpected message: %q", msg)
		}
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		if _, err := ValidateStepProof(models.ValidationTypeText, "Lighthouse", textProof("  LIGHTHOUSE  ")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("wrong answer", func(t *testing.T) {
		_, err := ValidateStepProof(models.ValidationTypeText, "lighthouse", textProof("windmill"))
		var failed *ValidationFailedError
		if !errors.As(err, &failed) {
			t.Fatalf("expected ValidationFailedError, got %v", err)
		}
		if failed.Reason != "Incorrect answer" {
			t.Errorf("unexpected reason: %q", failed.Reason)
		}
	})

	t.Run("missing answer", func(t *testing.T) {
		_, err := ValidateStepProof(models.ValidationTypeText, "lighthouse", ProofPayload{})
		var required *ProofRequiredError
		if !errors.As(err, &required) {
			t.Fatalf("expected ProofRequiredError, got %v", err)
		}
	})
}

func TestValidateStepProofQRCode(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		msg, err := ValidateStepProof(models.ValidationTypeQRCode, "HUNT-42-STEP-1", ProofPayload{QRCode: "HUNT-42-STEP-1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg != "QR code validated" {
			t.Errorf("unexpected message: %q", msg)
		}
	})

	t.Run("case sensitive", func(t *testing.T) {
		_, err := ValidateStepProof(models.ValidationTypeQRCode, "HUNT-42-STEP-1", ProofPayload{QRCode: "hunt-42-step-1"})
		var failed *ValidationFailedError
		if !errors.As(err, &failed) {
			t.Fatalf("expected ValidationFailedError, got %v", err)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := ValidateStepProof(models.ValidationTypeQRCode, "HUNT-42-STEP-1", ProofPayload{})
		var required *ProofRequiredError
		if !errors.As(err, &required) {
			t.Fatalf("expected ProofRequiredError, got %v", err)
		}
	})
}

func TestValidateStepProofLocation(t *testing.T) {
	// Eiffel Tower. At this latitude one degree of latitude is ~111195m, so
	// a 0.000449 degree offset lands ~49.9m away and 0.00055 lands ~61m away.
	const target = "48.8584,2.2945"

	t.Run("within tolerance", func(t *testing.T) {
		proof := ProofPayload{Location: &GeoPoint{Lat: 48.8584 + 0.000449, Lng: 2.2945}}
		msg, err := ValidateStepProof(models.ValidationTypeLocation, target, proof)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg != "Location validated" {
			t.Errorf("unexpected message: %q", msg)
		}
	})

	t.Run("exact position", func(t *testing.T) {
		proof := ProofPayload{Location: &GeoPoint{Lat: 48.8584, Lng: 2.2945}}
		if _, err := ValidateStepProof(models.ValidationTypeLocation, target, proof); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("just inside the boundary", func(t *testing.T) {
		// 0.00044966 degrees of latitude is ~49.9999m on the 6371km sphere.
		const offset = 0.00044966
		d := HaversineDistance(48.8584, 2.2945, 48.8584+offset, 2.2945)
		if d <= 49.99 || d > 50.0 {
			t.Fatalf("offset not tuned to the boundary, distance %.4fm", d)
		}
		proof := ProofPayload{Location: &GeoPoint{Lat: 48.8584 + offset, Lng: 2.2945}}
		if _, err := ValidateStepProof(models.ValidationTypeLocation, target, proof); err != nil {
			t.Errorf("tolerance is inclusive, %.4fm must pass: %v", d, err)
		}
	})

	t.Run("just outside the boundary", func(t *testing.T) {
		// ~50.0002m, the tightest rejection a latitude offset pins down.
		const offset = 0.000449662612
		d := HaversineDistance(48.8584, 2.2945, 48.8584+offset, 2.2945)
		if d <= 50.0 || d >= 50.1 {
			t.Fatalf("offset not tuned to the boundary, distance %.4fm", d)
		}
		proof := ProofPayload{Location: &GeoPoint{Lat: 48.8584 + offset, Lng: 2.2945}}
		_, err := ValidateStepProof(models.ValidationTypeLocation, target, proof)
		var failed *ValidationFailedError
		if !errors.As(err, &failed) {
			t.Errorf("%.4fm is past the tolerance and must fail, got %v", d, err)
		}
	})

	t.Run("beyond tolerance", func(t *testing.T) {
		proof := ProofPayload{Location: &GeoPoint{Lat: 48.8584 + 0.00055, Lng: 2.2945}}
		_, err := ValidateStepProof(models.ValidationTypeLocation, target, proof)
		var failed *ValidationFailedError
		if !errors.As(err, &failed) {
			t.Fatalf("expected ValidationFailedError, got %v", err)
		}
	})

	t.Run("missing location", func(t *testing.T) {
		_, err := ValidateStepProof(models.ValidationTypeLocation, target, ProofPayload{})
		var required *ProofRequiredError
		if !errors.As(err, &required) {
			t.Fatalf("expected ProofRequiredError, got %v", err)
		}
	})

	t.Run("malformed target", func(t *testing.T) {
		proof := ProofPayload{Location: &GeoPoint{Lat: 48.8584, Lng: 2.2945}}
		if _, err := ValidateStepProof(models.ValidationTypeLocation, "not-a-coordinate", proof); err == nil {
			t.Fatal("expected error for malformed target")
		}
	})
}

func TestValidateStepProofUnknownType(t *testing.T) {
	if _, err := ValidateStepProof("retina_scan", "x", ProofPayload{Answer: "x"}); err == nil {
		t.Fatal("expected error for unknown validation type")
	}
}

func TestHaversineDistance(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		if d := HaversineDistance(48.8584, 2.2945, 48.8584, 2.2945); d != 0 {
			t.Errorf("expected 0, got %f", d)
		}
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		// One degree of latitude is ~111.19km on a 6371km sphere.
		d := HaversineDistance(48.0, 2.0, 49.0, 2.0)
		if math.Abs(d-111195) > 100 {
			t.Errorf("expected ~111195m, got %f", d)
		}
	})

	t.Run("paris to london", func(t *testing.T) {
		d := HaversineDistance(48.8566, 2.3522, 51.5074, -0.1278)
		if d < 330000 || d > 350000 {
			t.Errorf("expected ~343km, got %fm", d)
		}
	})
}

func TestParseLatLng(t *testing.T) {
	lat, lng, err := ParseLatLng(" 48.8584 , 2.2945 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lat != 48.8584 || lng != 2.2945 {
		t.Errorf("got (%f, %f)", lat, lng)
	}

	for _, bad := range []string{"", "48.8584", "a,b", "48.8584,2.2945,0"} {
		if _, _, err := ParseLatLng(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
