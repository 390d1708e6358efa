package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
)

func u16(v uint16) *uint16 { return &v }
func str(v string) *string { return &v }

func reqs(n int, prefix string) []models.Request {
	out := make([]models.Request, n)
	for i := range out {
		out[i] = models.Request{Network: models.Solana, PoolAddress: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return out
}

type stubHost struct {
	slots []SlotResult
}

func (s *stubHost) Name() string  { return "stub" }
func (s *stubHost) BulkSize() int { return len(s.slots) }
func (s *stubHost) Invoke(context.Context, [][]models.Request) []SlotResult {
	return s.slots
}

func TestTrigger_SlotFailureFansOut(t *testing.T) {
	h := &stubHost{slots: []SlotResult{
		{Responses: []models.Response{{Status: u16(200), Body: str("a")}, {Status: u16(200), Body: str("b")}}},
		{Err: fmt.Errorf("%w: throttled", errs.ErrRemoteInvocation)},
		{Responses: []models.Response{{Status: u16(404), Body: str("nf")}}},
	}}
	batches := [][]models.Request{reqs(2, "s0"), reqs(3, "s1"), reqs(1, "s2")}

	out := Trigger(context.Background(), h, batches)
	require.Len(t, out, 3)

	require.Len(t, out[0], 2)
	assert.Equal(t, "a", string(out[0][0].Body))
	assert.Equal(t, "b", string(out[0][1].Body))

	require.Len(t, out[1], 3)
	for _, r := range out[1] {
		assert.ErrorIs(t, r.Err, errs.ErrRemoteInvocation)
		assert.True(t, errs.IsRetryable(r.Err))
	}

	require.Len(t, out[2], 1)
	assert.True(t, errs.IsNotFound(out[2][0].Err))
}

func TestTrigger_SlotStatusIsNotAPairVerdict(t *testing.T) {
	h := &stubHost{slots: []SlotResult{{Err: errs.Status(404, "404 page not found")}}}

	out := Trigger(context.Background(), h, [][]models.Request{reqs(2, "s0")})
	require.Len(t, out[0], 2)
	for _, r := range out[0] {
		var slotErr *errs.SlotError
		require.ErrorAs(t, r.Err, &slotErr)
		assert.Equal(t, 0, slotErr.Slot)
		assert.False(t, errs.IsNotFound(r.Err))
		assert.True(t, errs.IsRetryable(r.Err))
	}
}

func TestTrigger_InterpretsEnvelope(t *testing.T) {
	h := &stubHost{slots: []SlotResult{{Responses: []models.Response{
		{Err: str("dns failure")},
		{Status: u16(200)},
		{Status: u16(429), Body: str("rate limited")},
		{},
	}}}}

	out := Trigger(context.Background(), h, [][]models.Request{reqs(5, "p")})
	require.Len(t, out[0], 5)

	var re *errs.RuntimeError
	require.True(t, errors.As(out[0][0].Err, &re))
	assert.Equal(t, "dns failure", re.Message)
	assert.ErrorIs(t, out[0][1].Err, errs.ErrNoPayload)

	var se *errs.StatusError
	require.True(t, errors.As(out[0][2].Err, &se))
	assert.Equal(t, 429, se.Code)

	assert.ErrorIs(t, out[0][3].Err, errs.ErrUnexpectedBody)
	// fewer responses than requests
	assert.ErrorIs(t, out[0][4].Err, errs.ErrUnexpectedBody)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestHTTPHost_InvokePerSlot(t *testing.T) {
	var calls atomic.Int32
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "k", r.Header.Get("X-Auth-Key"))
		var in []models.Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		out := make([]models.Response, len(in))
		for i, req := range in {
			out[i] = models.Response{Status: u16(200), Body: str(req.PoolAddress)}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	h, err := NewHTTPHost(HTTPConfig{Endpoints: []string{ok.URL, broken.URL, ok.URL}, AuthKey: "k", Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, 3, h.BulkSize())

	batches := [][]models.Request{reqs(2, "a"), reqs(2, "b"), nil}
	out := Trigger(context.Background(), h, batches)

	assert.Equal(t, int32(2), calls.Load(), "empty slot must not be invoked")
	assert.Equal(t, "a-0", string(out[0][0].Body))
	assert.Equal(t, "a-1", string(out[0][1].Body))
	for _, r := range out[1] {
		var se *errs.StatusError
		require.True(t, errors.As(r.Err, &se))
		assert.Equal(t, http.StatusBadGateway, se.Code)
	}
	assert.Empty(t, out[2])
}

func TestHTTPHost_TransportAndEmptyBody(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer empty.Close()
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	h, err := NewHTTPHost(HTTPConfig{Endpoints: []string{empty.URL, deadURL}, Logger: quietLogger()})
	require.NoError(t, err)

	out := Trigger(context.Background(), h, [][]models.Request{reqs(1, "a"), reqs(1, "b")})
	assert.ErrorIs(t, out[0][0].Err, errs.ErrNoPayload)
	assert.ErrorIs(t, out[1][0].Err, errs.ErrRemoteInvocation)
}

func TestNewHTTPHost_RequiresEndpoints(t *testing.T) {
	_, err := NewHTTPHost(HTTPConfig{})
	assert.ErrorIs(t, err, errs.ErrConfig)
}

type fakeInvoker struct {
	out  *lambda.InvokeOutput
	err  error
	seen atomic.Int32
	fn   string
}

func (f *fakeInvoker) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.seen.Add(1)
	f.fn = aws.ToString(in.FunctionName)
	return f.out, f.err
}

func TestLambdaHost_Invoke(t *testing.T) {
	good := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(`[{"status":200,"body":"{}","err":null}]`)}}
	trapped := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, FunctionError: aws.String("Unhandled"), Payload: []byte(`{"errorMessage":"boom"}`)}}
	empty := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200}}
	failing := &fakeInvoker{err: errors.New("AccessDenied")}
	odd := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 202, Payload: []byte(`queued`)}}
	garbage := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(`{"not":"a list"}`)}}

	h := NewLambdaHostFromSlots("FetchOnchainBars", []LambdaSlot{
		{Region: "us-east-1", Client: good},
		{Region: "eu-west-1", Client: trapped},
		{Region: "ap-south-1", Client: empty},
		{Region: "sa-east-1", Client: failing},
		{Region: "us-west-2", Client: odd},
		{Region: "eu-north-1", Client: garbage},
	}, quietLogger())
	require.Equal(t, 6, h.BulkSize())

	batches := make([][]models.Request, 6)
	for i := range batches {
		batches[i] = reqs(1, fmt.Sprint(i))
	}
	out := Trigger(context.Background(), h, batches)

	assert.NoError(t, out[0][0].Err)
	assert.Equal(t, "{}", string(out[0][0].Body))
	assert.Equal(t, "FetchOnchainBars", good.fn)

	var re *errs.RuntimeError
	require.True(t, errors.As(out[1][0].Err, &re))
	assert.True(t, strings.Contains(re.Message, "boom"))

	assert.ErrorIs(t, out[2][0].Err, errs.ErrNoPayload)
	assert.ErrorIs(t, out[3][0].Err, errs.ErrRemoteInvocation)

	var se *errs.StatusError
	require.True(t, errors.As(out[4][0].Err, &se))
	assert.Equal(t, 202, se.Code)

	assert.ErrorIs(t, out[5][0].Err, errs.ErrUnexpectedBody)
}

func TestLambdaHost_SkipsEmptySlots(t *testing.T) {
	a := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(`[]`)}}
	b := &fakeInvoker{out: &lambda.InvokeOutput{StatusCode: 200, Payload: []byte(`[]`)}}
	h := NewLambdaHostFromSlots("f", []LambdaSlot{{Region: "r1", Client: a}, {Region: "r2", Client: b}}, quietLogger())

	out := Trigger(context.Background(), h, [][]models.Request{nil, nil})
	assert.Equal(t, int32(0), a.seen.Load()+b.seen.Load())
	assert.Len(t, out, 2)
}
