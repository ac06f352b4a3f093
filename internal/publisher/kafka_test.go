package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"servicehost/internal/config"
	"servicehost/internal/service"
)

func expectEvent(service string, kind Kind, state string) mocks.MessageChecker {
	return func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "service-lifecycle" {
			return fmt.Errorf("unexpected topic %q", msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != service {
			return fmt.Errorf("expected key %q, got %q", service, key)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var ev Event
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("value is not JSON: %w", err)
		}
		if ev.Kind != kind || ev.State != state {
			return fmt.Errorf("expected %s/%s, got %s/%s", kind, state, ev.Kind, ev.State)
		}
		return nil
	}
}

func TestKafkaPublisher_PublishesKeyedByService(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	producer.ExpectInputWithMessageCheckerFunctionAndSucceed(expectEvent("UpdateSvc", KindStatus, "Running"))
	producer.ExpectInputWithMessageCheckerFunctionAndSucceed(expectEvent("UpdateSvc", KindHeartbeat, "Running"))

	p := newKafkaPublisher(producer, "service-lifecycle")
	src := testSource()
	ctx := context.Background()

	if err := p.Publish(ctx, src.Status(service.Status{State: service.Running})); err != nil {
		t.Fatalf("Publish status failed: %v", err)
	}
	if err := p.Publish(ctx, src.Heartbeat(service.Running, nil)); err != nil {
		t.Fatalf("Publish heartbeat failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestKafkaPublisher_ProducerErrorsAreDrained(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	producer.ExpectInputAndFail(errors.New("broker unavailable"))
	producer.ExpectInputAndSucceed()

	p := newKafkaPublisher(producer, "service-lifecycle")
	ctx := context.Background()
	src := testSource()

	// A failed delivery is logged; later publishes still go through.
	if err := p.Publish(ctx, src.Heartbeat(service.Running, nil)); err != nil {
		t.Fatalf("first Publish failed: %v", err)
	}
	if err := p.Publish(ctx, src.Heartbeat(service.Running, nil)); err != nil {
		t.Fatalf("second Publish failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return after draining errors")
	}
}

func TestKafkaPublisher_PublishAfterClose(t *testing.T) {
	p := newKafkaPublisher(mocks.NewAsyncProducer(t, nil), "service-lifecycle")
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if err := p.Publish(context.Background(), &Event{Service: "UpdateSvc"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestNewSaramaConfig(t *testing.T) {
	cfg := config.DefaultConfig().Kafka
	cfg.Compression = "zstd"
	cfg.RequiredAcks = -1
	cfg.SASLEnabled = true
	cfg.SASLMechanism = "scram-sha-256"
	cfg.SASLUser = "svc"
	cfg.SASLPassword = "pw"

	sc, err := newSaramaConfig(cfg, config.SOCKSConfig{Host: "127.0.0.1", Port: 1080})
	if err != nil {
		t.Fatalf("newSaramaConfig failed: %v", err)
	}
	if sc.Producer.Compression != sarama.CompressionZSTD {
		t.Errorf("expected zstd compression, got %v", sc.Producer.Compression)
	}
	if sc.Producer.RequiredAcks != sarama.WaitForAll {
		t.Errorf("expected WaitForAll, got %v", sc.Producer.RequiredAcks)
	}
	if sc.Producer.Retry.Max != cfg.MaxRetries || sc.Producer.Retry.Backoff != cfg.RetryBackoff {
		t.Errorf("retry settings not applied: %+v", sc.Producer.Retry)
	}
	if sc.Net.DialTimeout != cfg.Timeout {
		t.Errorf("expected dial timeout %s, got %s", cfg.Timeout, sc.Net.DialTimeout)
	}
	if !sc.Net.SASL.Enable || sc.Net.SASL.Mechanism != sarama.SASLTypeSCRAMSHA256 {
		t.Errorf("expected SCRAM-SHA-256, got %v", sc.Net.SASL.Mechanism)
	}
	if sc.Net.SASL.SCRAMClientGeneratorFunc == nil {
		t.Fatal("expected SCRAM client generator")
	}
	if _, ok := sc.Net.SASL.SCRAMClientGeneratorFunc().(*XDGSCRAMClient); !ok {
		t.Error("expected XDGSCRAMClient")
	}
	if !sc.Net.Proxy.Enable || sc.Net.Proxy.Dialer == nil {
		t.Error("expected SOCKS5 proxy dialer")
	}
	if err := sc.Validate(); err != nil {
		t.Errorf("sarama rejected config: %v", err)
	}
}

func TestNewSaramaConfig_Defaults(t *testing.T) {
	sc, err := newSaramaConfig(config.KafkaConfig{SASLEnabled: true, SASLUser: "u", SASLPassword: "p"}, config.SOCKSConfig{})
	if err != nil {
		t.Fatalf("newSaramaConfig failed: %v", err)
	}
	if sc.Producer.Compression != sarama.CompressionSnappy {
		t.Errorf("expected snappy by default, got %v", sc.Producer.Compression)
	}
	if sc.Producer.RequiredAcks != sarama.WaitForLocal {
		t.Errorf("expected WaitForLocal by default, got %v", sc.Producer.RequiredAcks)
	}
	if sc.Net.SASL.Mechanism != sarama.SASLTypePlaintext {
		t.Errorf("expected PLAIN by default, got %v", sc.Net.SASL.Mechanism)
	}
	if sc.Net.Proxy.Enable {
		t.Error("proxy must stay disabled without SOCKS settings")
	}
}

func TestNewSaramaConfig_BadCAFile(t *testing.T) {
	_, err := newSaramaConfig(config.KafkaConfig{EnableTLS: true, TLSCAFile: "/nonexistent/ca.pem"}, config.SOCKSConfig{})
	if err == nil {
		t.Fatal("expected error for missing CA file")
	}
}

func TestXDGSCRAMClient_Begin(t *testing.T) {
	c := &XDGSCRAMClient{HashGeneratorFcn: SHA512}
	if err := c.Begin("svc", "pw", ""); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	first, err := c.Step("")
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if first == "" || c.Done() {
		t.Errorf("expected client-first message and an open conversation, got %q done=%v", first, c.Done())
	}
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	if _, err := NewKafkaPublisher(config.KafkaConfig{Topic: "t"}, config.SOCKSConfig{}); err == nil {
		t.Error("expected error without brokers")
	}
	if _, err := NewKafkaPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, config.SOCKSConfig{}); err == nil {
		t.Error("expected error without topic")
	}
}
