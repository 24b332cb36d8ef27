package transport

import "testing"

func TestSubstituteURLTemplateAllPlaceholders(t *testing.T) {
	got, err := SubstituteURLTemplate(
		"wss://${host}:${host_port}/api2/json/nodes/NODE/qemu/VMID/vncwebsocket?port=${vnc_port}&vncticket=${ticket}",
		URLTemplateValues{Host: "pve.example.com", HostPort: "8006", VNCPort: "5901", Ticket: "PVEVNC:abc123=="},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "wss://pve.example.com:8006/api2/json/nodes/NODE/qemu/VMID/vncwebsocket?port=5901&vncticket=PVEVNC%3Aabc123%3D%3D"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSubstituteURLTemplateMissingValueFails(t *testing.T) {
	_, err := SubstituteURLTemplate("wss://${host}/vnc?ticket=${ticket}", URLTemplateValues{Host: "h"})
	if err == nil {
		t.Fatal("expected an error for a referenced but unprovided placeholder")
	}
}

func TestSubstituteURLTemplateStripsEmptyQueryParams(t *testing.T) {
	got, err := SubstituteURLTemplate("wss://${host}/vnc?port=${vnc_port}&extra=", URLTemplateValues{Host: "h", VNCPort: "5900"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "wss://h/vnc?port=5900"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSubstituteURLTemplateNoPlaceholders(t *testing.T) {
	got, err := SubstituteURLTemplate("wss://static.example.com/vnc", URLTemplateValues{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "wss://static.example.com/vnc" {
		t.Fatalf("got %q", got)
	}
}
