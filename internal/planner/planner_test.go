package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
)

const (
	mib = int64(1 << 20)
	gib = int64(1 << 30)
	tib = int64(1 << 40)
)

func TestPlanner_Plan(t *testing.T) {
	tests := []struct {
		name      string
		fileSize  int64
		wantChunk int64
		wantParts int
		wantKind  errors.Kind
	}{
		{name: "one byte", fileSize: 1, wantChunk: 128 * mib, wantParts: 1},
		{name: "exactly one chunk", fileSize: 128 * mib, wantChunk: 128 * mib, wantParts: 1},
		{name: "one chunk plus a byte", fileSize: 128*mib + 1, wantChunk: 128 * mib, wantParts: 2},
		{name: "1 GiB", fileSize: gib, wantChunk: 128 * mib, wantParts: 8},
		{name: "100 GiB", fileSize: 100 * gib, wantChunk: 128 * mib, wantParts: 800},
		{name: "preferred limit", fileSize: 128 * mib * 10000, wantChunk: 128 * mib, wantParts: 10000},
		{
			name:      "just past preferred limit",
			fileSize:  128*mib*10000 + 1,
			wantChunk: 144 * mib,
			wantParts: 8889,
		},
		{name: "2 TiB", fileSize: 2 * tib, wantChunk: 224 * mib, wantParts: 9363},
		{name: "largest plannable", fileSize: 512 * mib * 10000, wantChunk: 512 * mib, wantParts: 10000},
		{name: "one past largest plannable", fileSize: 512*mib*10000 + 1, wantKind: errors.KindPlanning},
		{name: "5 TiB", fileSize: 5 * tib, wantKind: errors.KindPlanning},
		{name: "ten trillion bytes", fileSize: 10_000_000_000_000, wantKind: errors.KindPlanning},
		{name: "max int64", fileSize: math.MaxInt64, wantKind: errors.KindPlanning},
		{name: "zero", fileSize: 0, wantKind: errors.KindInvalidInput},
		{name: "negative", fileSize: -1, wantKind: errors.KindInvalidInput},
	}

	p := New()
	require.NoError(t, p.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Plan(tt.fileSize)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChunk, got.ChunkSize)
			assert.Equal(t, tt.wantParts, got.TotalParts)
		})
	}
}

func TestPlanner_PlanAlignment(t *testing.T) {
	p := Planner{Preferred: 8, MinChunk: 1, MaxChunk: 64, MaxParts: 4, Alignment: 4}
	require.NoError(t, p.Validate())

	tests := []struct {
		name      string
		fileSize  int64
		wantChunk int64
		wantParts int
	}{
		{name: "preferred fits", fileSize: 32, wantChunk: 8, wantParts: 4},
		{name: "aligned boundary stays", fileSize: 64, wantChunk: 16, wantParts: 4},
		{name: "rounds up to next multiple", fileSize: 65, wantChunk: 20, wantParts: 4},
		{name: "clamped to max", fileSize: 256, wantChunk: 64, wantParts: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Plan(tt.fileSize)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChunk, got.ChunkSize)
			assert.Equal(t, tt.wantParts, got.TotalParts)
		})
	}
}

func TestPlanner_PlanCoversFile(t *testing.T) {
	p := New()
	sizes := []int64{
		1, 5 * mib, 128*mib - 1, 999 * gib, tib, 1234567890123, 3*tib + 7, 4*tib + 12345,
		512*mib*10000 - 1,
	}

	for _, size := range sizes {
		got, err := p.Plan(size)
		require.NoError(t, err, "size %d", size)

		assert.LessOrEqual(t, got.TotalParts, p.MaxParts, "size %d", size)
		assert.GreaterOrEqual(t, got.ChunkSize*int64(got.TotalParts), size, "size %d", size)
		assert.Less(t, got.ChunkSize*int64(got.TotalParts-1), size, "size %d", size)
		assert.GreaterOrEqual(t, got.ChunkSize, p.MinChunk, "size %d", size)
		assert.LessOrEqual(t, got.ChunkSize, p.MaxChunk, "size %d", size)
		if got.ChunkSize != p.Preferred {
			assert.Zero(t, got.ChunkSize%p.Alignment, "size %d", size)
		}
	}
}

func TestPlanner_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Planner)
	}{
		{"zero min", func(p *Planner) { p.MinChunk = 0 }},
		{"max below min", func(p *Planner) { p.MaxChunk = p.MinChunk - 1 }},
		{"preferred below min", func(p *Planner) { p.Preferred = mib }},
		{"preferred above max", func(p *Planner) { p.Preferred = gib }},
		{"zero alignment", func(p *Planner) { p.Alignment = 0 }},
		{"zero max parts", func(p *Planner) { p.MaxParts = 0 }},
		{"max parts above limit", func(p *Planner) { p.MaxParts = S3MaxParts + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, int64(16), AlignUp(16, 16))
	assert.Equal(t, int64(32), AlignUp(17, 16))
	assert.Equal(t, int64(16), AlignUp(1, 16))
	assert.Equal(t, int64(1_006_632_960), AlignUp(1_000_000_000, 16*mib))
	assert.Equal(t, (math.MaxInt64/(16*mib))*16*mib, AlignUp(math.MaxInt64, 16*mib))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, int64(1), CeilDiv(1, 10))
	assert.Equal(t, int64(1), CeilDiv(10, 10))
	assert.Equal(t, int64(2), CeilDiv(11, 10))
	assert.Equal(t, int64(18627), CeilDiv(10_000_000_000_000, 512*mib))
	assert.Equal(t, int64(math.MaxInt64), CeilDiv(math.MaxInt64, 1))
}
