package algo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsDefaults(t *testing.T) {
	r := DefaultRegistry()
	for _, typ := range []Type{TypeTWAP, TypeVWAP, TypeIceberg, TypeShortfall, TypePOV} {
		p, err := DefaultParams(typ)
		require.NoError(t, err)
		assert.NoError(t, r.Validate(typ, p, 10_000, time.Hour), "type %s", typ)
	}
}

func TestValidateRejections(t *testing.T) {
	r := DefaultRegistry()

	cases := []struct {
		name  string
		typ   Type
		p     Params
		qty   float64
		span  time.Duration
	}{
		{"未知算法类型", Type("SNIPER"), TWAPParams{}, 100, time.Hour},
		{"参数类型不匹配", TypeTWAP, POVParams{TargetRate: 0.1}, 100, time.Hour},
		{"缺少必填参数", TypePOV, POVParams{}, 100, time.Hour},
		{"激进度越界", TypeTWAP, TWAPParams{Aggression: 1.5}, 100, time.Hour},
		{"数量为零", TypeTWAP, TWAPParams{}, 0, time.Hour},
		{"数量超过算法上限", TypeIceberg, IcebergParams{ClipSize: 100}, 600_000, time.Hour},
		{"窗口超过算法上限", TypeShortfall, ShortfallParams{RiskAversion: 1, ImpactCoefficient: 0.1}, 100, 10 * time.Hour},
		{"参与率超过算法上限", TypePOV, POVParams{TargetRate: 0.45}, 100, time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Validate(tc.typ, tc.p, tc.qty, tc.span)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation), "expected validation error, got %v", err)
		})
	}
}

func TestValidateNilParams(t *testing.T) {
	r := DefaultRegistry()
	err := r.Validate(TypeTWAP, nil, 100, time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuiltinDefinitionsCoverAllTypes(t *testing.T) {
	r := DefaultRegistry()
	for _, typ := range []Type{TypeTWAP, TypeVWAP, TypeIceberg, TypeShortfall, TypePOV} {
		_, ok := r.Get(typ)
		assert.True(t, ok, "missing definition for %s", typ)
	}
	assert.Len(t, r.Types(), 5)
}
