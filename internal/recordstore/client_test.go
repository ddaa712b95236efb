package recordstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinitumhq/infinitum/internal/logging"
	"github.com/infinitumhq/infinitum/internal/models"
)

type fakeObjectAPI struct {
	putCalls    atomic.Int64
	deleteCalls atomic.Int64
	putErr      error
	deleteErr   error
	lastKey     atomic.Value

	// putGate, when set, parks PutObject until the test releases it.
	putGate chan struct{}
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putCalls.Add(1)
	f.lastKey.Store(*in.Key)
	if f.putGate != nil {
		<-f.putGate
	}
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleteCalls.Add(1)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func testClient(api objectAPI) *Client {
	return &Client{
		api:         api,
		bucket:      "test-bucket",
		backoffUnit: time.Millisecond,
		log:         logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
}

func waitDone(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sync result")
		return nil
	}
}

func TestSyncRecord_Success(t *testing.T) {
	api := &fakeObjectAPI{}
	c := testClient(api)
	u := models.NewUser("alice_1", "alice@example.com", "dev-1", "ios")

	result := make(chan error, 1)
	c.SyncRecord(context.Background(), u, func(err error) { result <- err })

	require.NoError(t, waitDone(t, result))
	assert.Equal(t, int64(1), api.putCalls.Load())
	assert.Equal(t, RecordKey(u.ID), api.lastKey.Load())
}

func TestSyncRecord_RetriesThenReportsFailure(t *testing.T) {
	api := &fakeObjectAPI{putErr: errors.New("backend down")}
	c := testClient(api)
	u := models.NewUser("bob_2", "bob@example.com", "dev-2", "ios")

	result := make(chan error, 1)
	c.SyncRecord(context.Background(), u, func(err error) { result <- err })

	err := waitDone(t, result)
	require.Error(t, err)
	// first attempt plus maxRetries retries
	assert.Equal(t, int64(maxRetries+1), api.putCalls.Load())
}

func TestSyncRecord_DoesNotBlockCaller(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeObjectAPI{putGate: gate}
	c := testClient(api)
	u := models.NewUser("carol_3", "carol@example.com", "dev-3", "ios")

	result := make(chan error, 1)
	c.SyncRecord(context.Background(), u, func(err error) { result <- err })

	// reaching this point while the upload is still parked on the gate is
	// the proof that SyncRecord returned without waiting for it
	close(gate)
	require.NoError(t, waitDone(t, result))
}

func TestDeleteRecord_Success(t *testing.T) {
	api := &fakeObjectAPI{}
	c := testClient(api)

	result := make(chan error, 1)
	c.DeleteRecord(context.Background(), "user-1", func(err error) { result <- err })

	require.NoError(t, waitDone(t, result))
	assert.Equal(t, int64(1), api.deleteCalls.Load())
}

func TestLinearBackoff_WaitsGrowLinearly(t *testing.T) {
	b := linearBackoff(time.Second)

	for k := 1; k <= 3; k++ {
		d, stop := b.Next()
		assert.False(t, stop)
		assert.Equal(t, time.Duration(k)*time.Second, d)
	}
}
