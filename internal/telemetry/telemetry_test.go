package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/san-kum/motioncore/internal/device"
	"github.com/san-kum/motioncore/internal/device/fake"
	"github.com/san-kum/motioncore/internal/motorgroup"
	"github.com/san-kum/motioncore/internal/trace"
)

func init() {
	log.SetLevel(log.FatalLevel)
}

func flywheelSource(t *testing.T) (Source, *fake.Motor) {
	t.Helper()
	m := fake.NewMotor(20)
	g, err := motorgroup.New(m)
	if err != nil {
		t.Fatal(err)
	}
	return Source{Name: "flywheel", Motors: g}, m
}

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

// fakeClient records publishes. Methods other than Publish and
// Disconnect are not used by the publisher.
type fakeClient struct {
	mqtt.Client
	token *fakeToken
	sent  []published
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, payload: payload.([]byte)})
	return c.token
}

func (c *fakeClient) Disconnect(uint) {}

func TestSnapshot(t *testing.T) {
	src, m := flywheelSource(t)
	m.SetState(90, 600)
	m.SetFaults(device.FaultOverTemp)

	now := time.Unix(1700000000, 0)
	s := Take(src, now)
	if s.Group != "flywheel" || !s.Time.Equal(now) {
		t.Errorf("unexpected snapshot header %+v", s)
	}
	if len(s.Motors) != 1 || s.Motors[0].Port != 20 || s.Motors[0].Velocity != 600 {
		t.Errorf("unexpected motors %+v", s.Motors)
	}
	if !s.Faulted() {
		t.Error("expected faulted snapshot")
	}
}

func TestLatest(t *testing.T) {
	l := NewLatest()
	l.Observe(trace.Sample{Subsystem: trace.Flywheel, Target: 400})
	l.Observe(trace.Sample{Subsystem: trace.DriveLeft, Target: 1})
	l.Observe(trace.Sample{Subsystem: trace.Flywheel, Target: 600})

	got := l.Samples()
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if got[0].Subsystem != trace.DriveLeft || got[1].Target != 600 {
		t.Errorf("unexpected latest samples %+v", got)
	}
}

func TestMQTTPublisher(t *testing.T) {
	client := &fakeClient{token: &fakeToken{}}
	p := NewMQTTPublisher(client, "motioncore")

	src, _ := flywheelSource(t)
	if err := p.Publish(Take(src, time.Now())); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(client.sent))
	}
	if client.sent[0].topic != "motioncore/flywheel/telemetry" {
		t.Errorf("unexpected topic %s", client.sent[0].topic)
	}
	var got Snapshot
	if err := json.Unmarshal(client.sent[0].payload, &got); err != nil {
		t.Fatalf("payload is not a snapshot: %v", err)
	}
	if got.Group != "flywheel" {
		t.Errorf("expected group flywheel, got %s", got.Group)
	}
}

func TestMQTTPublisherErrors(t *testing.T) {
	src, _ := flywheelSource(t)

	slow := NewMQTTPublisher(&fakeClient{token: &fakeToken{timeout: true}}, "m")
	if err := slow.Publish(Take(src, time.Now())); !errors.Is(err, ErrPublishTimeout) {
		t.Errorf("expected ErrPublishTimeout, got %v", err)
	}

	boom := errors.New("not connected")
	broken := NewMQTTPublisher(&fakeClient{token: &fakeToken{err: boom}}, "m")
	if err := broken.Publish(Take(src, time.Now())); !errors.Is(err, boom) {
		t.Errorf("expected broker error, got %v", err)
	}
}

func TestHub(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	src, _ := flywheelSource(t)
	if err := hub.Publish(Take(src, time.Now())); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Snapshot
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Group != "flywheel" || len(got.Motors) != 1 {
		t.Errorf("unexpected snapshot %+v", got)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type memPublisher struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (p *memPublisher) Publish(s Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.snaps = append(p.snaps, s)
	return nil
}

func (p *memPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

func TestReporterReport(t *testing.T) {
	src, _ := flywheelSource(t)
	good := &memPublisher{}
	bad := &memPublisher{err: errors.New("down")}
	latest := NewLatest()
	latest.Observe(trace.Sample{Subsystem: trace.Flywheel, Target: 600})

	r := NewReporter(time.Hour, []Publisher{good, bad}, src).WithTrace(latest)
	r.Report(time.Now())

	if good.count() != 1 {
		t.Fatalf("expected 1 snapshot, got %d", good.count())
	}
	if len(good.snaps[0].Trace) != 1 {
		t.Errorf("expected trace attached, got %+v", good.snaps[0].Trace)
	}
	if r.Sent() != 1 || r.Failures() != 1 {
		t.Errorf("expected 1 sent and 1 failure, got %d and %d", r.Sent(), r.Failures())
	}
}

func TestReporterLoop(t *testing.T) {
	src, _ := flywheelSource(t)
	pub := &memPublisher{}
	r := NewReporter(5*time.Millisecond, []Publisher{pub}, src)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("reporter never published")
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()

	n := pub.count()
	time.Sleep(30 * time.Millisecond)
	if pub.count() != n {
		t.Error("reporter kept publishing after Stop")
	}
}
