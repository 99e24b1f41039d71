package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/store"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/uploadtypes"
)

func TestSortParts(t *testing.T) {
	in := []uploadtypes.Part{{PartNumber: 3, ETag: "c"}, {PartNumber: 1, ETag: "a"}, {PartNumber: 2, ETag: "b"}}

	got := store.SortParts(in)

	assert.Equal(t, []uploadtypes.Part{{PartNumber: 1, ETag: "a"}, {PartNumber: 2, ETag: "b"}, {PartNumber: 3, ETag: "c"}}, got)
	assert.Equal(t, 3, in[0].PartNumber, "input must not be reordered")
}

func TestCheckPresignTTL(t *testing.T) {
	assert.NoError(t, store.CheckPresignTTL(time.Second))
	assert.NoError(t, store.CheckPresignTTL(24*time.Hour))
	assert.NoError(t, store.CheckPresignTTL(uploadtypes.MaxPresignExpiry))

	for _, ttl := range []time.Duration{0, -time.Hour, time.Millisecond, uploadtypes.MaxPresignExpiry + 1} {
		err := store.CheckPresignTTL(ttl)
		require.Error(t, err, "ttl %s", ttl)
		assert.True(t, errors.IsInvalidInput(err))
	}
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		store       store.SessionStore
		wantErr     bool
		wantCreated bool
	}{
		{
			name:  "store without bucket management",
			store: &testutil.MockSessionStore{},
		},
		{
			name:  "bucket exists",
			store: &testutil.MockBucketStore{},
		},
		{
			name: "bucket created",
			store: &testutil.MockBucketStore{
				BucketExistsFunc: func(context.Context, string) (bool, error) { return false, nil },
			},
			wantCreated: true,
		},
		{
			name: "check fails",
			store: &testutil.MockBucketStore{
				BucketExistsFunc: func(context.Context, string) (bool, error) { return false, fmt.Errorf("timeout") },
			},
			wantErr: true,
		},
		{
			name: "create fails",
			store: &testutil.MockBucketStore{
				BucketExistsFunc: func(context.Context, string) (bool, error) { return false, nil },
				CreateBucketFunc: func(context.Context, string) error { return fmt.Errorf("denied") },
			},
			wantErr:     true,
			wantCreated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created string
			if bs, ok := tt.store.(*testutil.MockBucketStore); ok {
				create := bs.CreateBucketFunc
				bs.CreateBucketFunc = func(ctx context.Context, bucket string) error {
					created = bucket
					if create != nil {
						return create(ctx, bucket)
					}
					return nil
				}
			}

			err := store.EnsureBucket(ctx, tt.store, "uploads", nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.wantCreated {
				assert.Equal(t, "uploads", created)
			} else {
				assert.Empty(t, created)
			}
		})
	}
}
