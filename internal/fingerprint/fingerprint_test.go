package fingerprint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orderflow/orderflow/internal/fingerprint"
)

func TestFingerprintIsPure(t *testing.T) {
	m := fingerprint.Meta{
		PageCount:         2,
		PageDimensions:    []fingerprint.PageDim{{WidthPt: 612, HeightPt: 792}, {WidthPt: 612, HeightPt: 792}},
		TableCount:        1,
		TextCoverageRatio: 0.423456,
	}
	a := fingerprint.Fingerprint(&m)
	b := fingerprint.Fingerprint(&m)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // 256 bits hex-encoded
}

func TestFingerprintRoundsCoverage(t *testing.T) {
	m1 := fingerprint.Meta{PageCount: 1, TextCoverageRatio: 0.501}
	m2 := fingerprint.Meta{PageCount: 1, TextCoverageRatio: 0.504}
	assert.Equal(t, fingerprint.Fingerprint(&m1), fingerprint.Fingerprint(&m2))
}

func TestFingerprintOrderSensitive(t *testing.T) {
	m1 := fingerprint.Meta{PageDimensions: []fingerprint.PageDim{{WidthPt: 1, HeightPt: 2}, {WidthPt: 3, HeightPt: 4}}}
	m2 := fingerprint.Meta{PageDimensions: []fingerprint.PageDim{{WidthPt: 3, HeightPt: 4}, {WidthPt: 1, HeightPt: 2}}}
	assert.NotEqual(t, fingerprint.Fingerprint(&m1), fingerprint.Fingerprint(&m2))
}

func TestFingerprintNilMeta(t *testing.T) {
	assert.Equal(t, "", fingerprint.Fingerprint(nil))
}

func TestFingerprintDifferentShapesDiffer(t *testing.T) {
	m1 := fingerprint.Meta{PageCount: 1}
	m2 := fingerprint.Meta{PageCount: 2}
	assert.NotEqual(t, fingerprint.Fingerprint(&m1), fingerprint.Fingerprint(&m2))
}
