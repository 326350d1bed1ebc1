package unisphere

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/avolkov/unihost/internal/flags"
)

// testClient builds a client pointed at a TLS test server.
func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split test server host: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	c := NewClient(Params{
		Host:     host,
		Port:     port,
		Username: "smc",
		Password: "smc",
		Serial:   "000197900123",
	})
	return c, srv
}

func TestGetHost(t *testing.T) {
	var gotPath string
	var gotAuth bool
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		user, pass, ok := r.BasicAuth()
		gotAuth = ok && user == "smc" && pass == "smc"
		json.NewEncoder(w).Encode(Host{
			HostID:        "H1",
			Initiators:    []string{"10000090fa7b4e85"},
			EnabledFlags:  "SCSI_3(Ovrd)",
			ConsistentLUN: true,
		})
	}))

	host, err := c.GetHost(context.Background(), "H1")
	if err != nil {
		t.Fatalf("GetHost() error: %v", err)
	}

	wantPath := "/univmax/restapi/100/sloprovisioning/symmetrix/000197900123/host/H1"
	if gotPath != wantPath {
		t.Errorf("request path = %q, want %q", gotPath, wantPath)
	}
	if !gotAuth {
		t.Errorf("request did not carry basic auth")
	}
	if host.HostID != "H1" || len(host.Initiators) != 1 {
		t.Errorf("host = %+v", host)
	}
	if got := host.FlagReport().State(flags.SCSI3); got != flags.Enabled {
		t.Errorf("scsi_3 from report = %v, want Enabled", got)
	}
}

func TestGetHostNotFound(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Cannot find host"})
	}))

	_, err := c.GetHost(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetHost() error = %v, want ErrNotFound", err)
	}
}

func TestCreateHostPayload(t *testing.T) {
	var body map[string]any
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
	}))

	fs := flags.Normalize(map[string]any{"scsi_3": true, "openvms": false})
	err := c.CreateHost(context.Background(), "H1", []string{"iqn.a"}, &fs)
	if err != nil {
		t.Fatalf("CreateHost() error: %v", err)
	}

	if body["hostId"] != "H1" {
		t.Errorf("hostId = %v, want H1", body["hostId"])
	}
	inits, _ := body["initiatorId"].([]any)
	if len(inits) != 1 || inits[0] != "iqn.a" {
		t.Errorf("initiatorId = %v, want [iqn.a]", body["initiatorId"])
	}

	hostFlags, _ := body["host_flags"].(map[string]any)
	scsi3, _ := hostFlags["scsi_3"].(map[string]any)
	if scsi3["enabled"] != true || scsi3["override"] != true {
		t.Errorf("scsi_3 payload = %v, want enabled+override", scsi3)
	}
	openvms, _ := hostFlags["openvms"].(map[string]any)
	if openvms["enabled"] != false || openvms["override"] != true {
		t.Errorf("openvms payload = %v, want disabled+override", openvms)
	}
	// Default flags carry override=false so the port default applies
	vsa, _ := hostFlags["volume_set_addressing"].(map[string]any)
	if vsa["enabled"] != false || vsa["override"] != false {
		t.Errorf("volume_set_addressing payload = %v, want no override", vsa)
	}
	if hostFlags["consistent_lun"] != false {
		t.Errorf("consistent_lun = %v, want false", hostFlags["consistent_lun"])
	}
}

func TestModifyEnvelopes(t *testing.T) {
	var body map[string]any
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&body)
	}))

	action := func() map[string]any {
		t.Helper()
		a, _ := body["editHostActionParam"].(map[string]any)
		if a == nil {
			t.Fatalf("body missing editHostActionParam: %v", body)
		}
		return a
	}

	if err := c.AddInitiators(context.Background(), "H1", []string{"iqn.a"}); err != nil {
		t.Fatalf("AddInitiators() error: %v", err)
	}
	if _, ok := action()["addInitiatorParam"]; !ok {
		t.Errorf("add envelope = %v, want addInitiatorParam", action())
	}

	if err := c.RemoveInitiators(context.Background(), "H1", []string{"iqn.a"}); err != nil {
		t.Fatalf("RemoveInitiators() error: %v", err)
	}
	if _, ok := action()["removeInitiatorParam"]; !ok {
		t.Errorf("remove envelope = %v, want removeInitiatorParam", action())
	}

	if err := c.RenameHost(context.Background(), "H1", "H2"); err != nil {
		t.Fatalf("RenameHost() error: %v", err)
	}
	rename, _ := action()["renameHostParam"].(map[string]any)
	if rename["new_host_name"] != "H2" {
		t.Errorf("rename envelope = %v, want new_host_name=H2", rename)
	}

	if err := c.SetHostFlags(context.Background(), "H1", flags.NewSet()); err != nil {
		t.Fatalf("SetHostFlags() error: %v", err)
	}
	if _, ok := action()["setHostFlagsParam"]; !ok {
		t.Errorf("flags envelope = %v, want setHostFlagsParam", action())
	}
}

func TestMutationErrorCarriesMessage(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"message": "The host is part of a Masking View",
		})
	}))

	err := c.DeleteHost(context.Background(), "H1")
	if err == nil {
		t.Fatalf("DeleteHost() error = nil, want constraint failure")
	}
	if !strings.Contains(err.Error(), "H1") || !strings.Contains(err.Error(), "Masking View") {
		t.Errorf("error %q should name the host and the cause", err)
	}
}

func TestConnectVersionGate(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"supported", "V10.0.1.5", false},
		{"minimum", "V9.2.1.6", false},
		{"too_old", "V8.4.0.18", true},
		{"garbage", "latest", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/univmax/restapi/version" {
					t.Errorf("version probe path = %q", r.URL.Path)
				}
				json.NewEncoder(w).Encode(map[string]string{"version": tt.version})
			}))

			err := c.Connect(context.Background())
			if tt.wantErr && err == nil {
				t.Errorf("Connect() error = nil, want version rejection")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Connect() error: %v", err)
			}
		})
	}
}
