package discovery

import (
	"errors"
	"net"
	"reflect"
	"testing"

	"github.com/enbility/zeroconf/v3"
)

func TestDecodeTXT(t *testing.T) {
	tests := []struct {
		name    string
		txt     []string
		want    *RegistryInfo
		wantErr error
	}{
		{
			name: "full",
			txt:  []string{"version=1.0", "services=GpioBus,Sensor,Panel"},
			want: &RegistryInfo{Version: "1.0", Services: []string{"GpioBus", "Sensor", "Panel"}},
		},
		{
			name: "no services",
			txt:  []string{"version=1.0"},
			want: &RegistryInfo{Version: "1.0"},
		},
		{
			name: "blanks skipped",
			txt:  []string{"version=1.1", "services= GpioBus,,Panel "},
			want: &RegistryInfo{Version: "1.1", Services: []string{"GpioBus", "Panel"}},
		},
		{
			name:    "missing version",
			txt:     []string{"services=GpioBus"},
			wantErr: ErrMissingRequired,
		},
		{
			name:    "bad service name",
			txt:     []string{"version=1.0", "services=Gpio Bus"},
			wantErr: ErrInvalidTXTRecord,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeTXT(StringsToTXTRecords(tt.txt))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeTXT() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeTXT() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeTXT() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEncodeTXTSorted(t *testing.T) {
	got := TXTRecordsToStrings(EncodeTXT(&RegistryInfo{Version: "1.0", Services: []string{"GpioBus", "Sensor"}}))
	want := []string{"services=GpioBus,Sensor", "version=1.0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TXT = %v, want %v", got, want)
	}
}

func TestDefaultInstanceName(t *testing.T) {
	if got := DefaultInstanceName("raspberrypi.lan"); got != "hatrpc-raspberrypi" {
		t.Errorf("DefaultInstanceName() = %q", got)
	}
	long := DefaultInstanceName(string(make([]byte, 100)))
	if len(long) != MaxInstanceNameLen {
		t.Errorf("len = %d, want %d", len(long), MaxInstanceNameLen)
	}
}

func TestRegistryServiceAddress(t *testing.T) {
	svc := &RegistryService{RegistryInfo: RegistryInfo{Port: 8000}, Host: "pi.local."}
	if got := svc.Address(); got != "pi.local.:8000" {
		t.Errorf("Address() = %q", got)
	}
	svc.Addresses = []string{"192.168.1.20", "fe80::1"}
	if got := svc.Address(); got != "192.168.1.20:8000" {
		t.Errorf("Address() = %q", got)
	}
}

func newEntry(instance string) *zeroconf.ServiceEntry {
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: instance, Service: ServiceType, Domain: Domain},
	}
}

func TestEntryToRegistry(t *testing.T) {
	entry := newEntry("hatrpc-pi")
	entry.HostName = "pi.local."
	entry.Port = 8000
	entry.Text = []string{"version=1.0", "services=GpioBus"}
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.20")}

	svc := entryToRegistry(entry)
	if svc == nil {
		t.Fatal("entryToRegistry() = nil")
	}
	if svc.Instance != "hatrpc-pi" || svc.Port != 8000 || svc.Version != "1.0" {
		t.Errorf("unexpected service %+v", svc)
	}
	if got := svc.Address(); got != "192.168.1.20:8000" {
		t.Errorf("Address() = %q", got)
	}

	entry.Text = []string{"services=GpioBus"}
	if entryToRegistry(entry) != nil {
		t.Error("entry without version accepted")
	}
}

func TestAddressAggregation(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "fe80::1"})
	if !reflect.DeepEqual(addrs, []string{"10.0.0.1", "fe80::1"}) {
		t.Fatalf("merge = %v", addrs)
	}

	gone := newEntry("hatrpc-pi")
	gone.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
	addrs = removeAddresses(addrs, gone)
	if !reflect.DeepEqual(addrs, []string{"10.0.0.1"}) {
		t.Errorf("remove = %v", addrs)
	}
}

func TestAdvertiseValidation(t *testing.T) {
	a := NewAdvertiser(DefaultAdvertiserConfig())
	defer a.Stop()

	if err := a.Advertise(&RegistryInfo{Port: 8000, Version: "1.0"}); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("empty instance: %v", err)
	}
	if err := a.Advertise(&RegistryInfo{Instance: "hatrpc-pi", Port: 0, Version: "1.0"}); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("port 0: %v", err)
	}
	if err := a.Advertise(&RegistryInfo{Instance: "hatrpc-pi", Port: 8000}); !errors.Is(err, ErrMissingRequired) {
		t.Errorf("no version: %v", err)
	}
}
