package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bgapi-protocol/bgapi-go/pkg/wire"
)

// EncodeBridgeTXT creates TXT records for a bridge advertisement.
func EncodeBridgeTXT(info *BridgeInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyVersion:    TXTVersion,
		TXTKeyLengthMode: info.LengthMode.String(),
	}
	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = info.DeviceName
	}
	if info.APIVersion != "" {
		txt[TXTKeyAPIVersion] = info.APIVersion
	}
	return txt
}

// DecodeBridgeTXT parses TXT records from a bridge advertisement.
// A missing length mode means additive.
func DecodeBridgeTXT(txt TXTRecordMap) (*BridgeInfo, error) {
	if v, ok := txt[TXTKeyVersion]; ok && v != TXTVersion {
		return nil, fmt.Errorf("%w: unsupported %s %q", ErrInvalidTXTRecord, TXTKeyVersion, v)
	}

	info := &BridgeInfo{
		DeviceName: txt[TXTKeyDeviceName],
		APIVersion: txt[TXTKeyAPIVersion],
		LengthMode: wire.LengthAdditive,
	}
	if s, ok := txt[TXTKeyLengthMode]; ok {
		mode, err := wire.ParseLengthMode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTXTRecord, err)
		}
		info.LengthMode = mode
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings. A bare key maps to "".
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		if s == "" {
			continue
		}
		k, v, _ := strings.Cut(s, "=")
		txt[k] = v
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidInstanceName)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
