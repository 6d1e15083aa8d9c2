package mqtt

import (
	"encoding/json"
	"testing"
)

func TestClientOptionsCarryCredentials(t *testing.T) {
	opts, err := newClientOptions("tcp://broker.local:1883", "hotplate-1", "labuser", "hunter2")
	if err != nil {
		t.Fatalf("newClientOptions: %v", err)
	}

	if opts.ClientID != "hotplate-1" {
		t.Errorf("client id = %q, want hotplate-1", opts.ClientID)
	}
	if opts.Username != "labuser" {
		t.Errorf("username = %q, want labuser", opts.Username)
	}
	if opts.Password != "hunter2" {
		t.Errorf("password not carried through")
	}
	if len(opts.Servers) != 1 || opts.Servers[0].Host != "broker.local:1883" {
		t.Errorf("servers = %v, want broker.local:1883", opts.Servers)
	}
}

func TestClientOptionsAnonymousWithoutUsername(t *testing.T) {
	opts, err := newClientOptions("tcp://localhost:1883", "hotplate-1", "", "ignored")
	if err != nil {
		t.Fatalf("newClientOptions: %v", err)
	}

	if opts.Username != "" || opts.Password != "" {
		t.Errorf("expected anonymous connection, got username=%q password set=%v",
			opts.Username, opts.Password != "")
	}
}

func TestClientOptionsWill(t *testing.T) {
	opts, err := newClientOptions("tcp://localhost:1883", "hotplate-1", "", "")
	if err != nil {
		t.Fatalf("newClientOptions: %v", err)
	}

	if !opts.WillEnabled {
		t.Fatal("will must be enabled")
	}
	if opts.WillTopic != TopicSystem {
		t.Errorf("will topic = %q, want %q", opts.WillTopic, TopicSystem)
	}
	if opts.WillQos != 1 || opts.WillRetained {
		t.Errorf("will qos/retained = %d/%v, want 1/false", opts.WillQos, opts.WillRetained)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(opts.WillPayload, &parsed); err != nil {
		t.Fatalf("will payload is not valid JSON: %v", err)
	}
	if parsed.System.Event != "SHUTDOWN" || parsed.System.Reason != "MQTT_DISCONNECT" {
		t.Errorf("will payload = %+v", parsed.System)
	}
}
