package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates the TXT records announcing info.
func EncodeTXT(info *RegistryInfo) TXTRecordMap {
	return TXTRecordMap{
		TXTKeyVersion:  info.Version,
		TXTKeyServices: strings.Join(info.Services, ","),
	}
}

// DecodeTXT parses the TXT records of a registry. Port and Instance are
// left for the caller.
func DecodeTXT(txt TXTRecordMap) (*RegistryInfo, error) {
	v, ok := txt[TXTKeyVersion]
	if !ok || v == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	info := &RegistryInfo{Version: v}

	for _, name := range strings.Split(txt[TXTKeyServices], ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if strings.ContainsAny(name, " =") {
			return nil, fmt.Errorf("%w: invalid service name %q", ErrInvalidTXTRecord, name)
		}
		info.Services = append(info.Services, name)
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value"
// strings, the form zeroconf expects.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// DefaultInstanceName derives an instance name from hostname.
func DefaultInstanceName(hostname string) string {
	if i := strings.IndexByte(hostname, '.'); i > 0 {
		hostname = hostname[:i]
	}
	name := InstancePrefix + hostname
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}
