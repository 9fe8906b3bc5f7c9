package ie

// BasicRateBit marks a rate as a "basic" (mandatory) rate in the supported-
// rates / extended-supported-rates elements (802.11-2016 §9.4.2.3).
const BasicRateBit = 0x80

// ParseSupportedRates decodes tag 1 and, if present, tag 50 into a flat list
// of (rate, isBasic) pairs used by the AP FSM's common-basic-rate check
// (§4.7).
func ParseSupportedRates(data []byte) ([]Rate, error) {
	var rates []Rate
	for _, tag := range []uint8{TagSupportedRates, TagExtendedRates} {
		val, err := FindUnique(data, tag)
		if err != nil {
			return nil, err
		}
		for _, b := range val {
			rates = append(rates, Rate{Value: b &^ BasicRateBit, Basic: b&BasicRateBit != 0})
		}
	}
	return rates, nil
}

// Rate is one supported-rate entry, with the basic-rate bit decoded out.
type Rate struct {
	Value uint8 // in units of 500 kb/s
	Basic bool
}

// BuildSupportedRates emits tag 1 (first 8 rates) and, if more than 8 rates
// are given, tag 50 for the remainder.
func BuildSupportedRates(rates []Rate) []byte {
	encode := func(r Rate) byte {
		v := r.Value
		if r.Basic {
			v |= BasicRateBit
		}
		return v
	}
	var out []byte
	head := rates
	if len(head) > 8 {
		head = rates[:8]
	}
	var hv []byte
	for _, r := range head {
		hv = append(hv, encode(r))
	}
	out = buildTLV(out, TagSupportedRates, hv)
	if len(rates) > 8 {
		var tv []byte
		for _, r := range rates[8:] {
			tv = append(tv, encode(r))
		}
		out = buildTLV(out, TagExtendedRates, tv)
	}
	return out
}

// HasCommonBasicRate reports whether ours and theirs share at least one
// basic rate value (§4.7 (Re)association requires "at least one common
// basic rate").
func HasCommonBasicRate(ours, theirs []Rate) bool {
	basic := make(map[uint8]bool, len(ours))
	for _, r := range ours {
		if r.Basic {
			basic[r.Value] = true
		}
	}
	for _, r := range theirs {
		if r.Basic && basic[r.Value] {
			return true
		}
	}
	return false
}

// ParseSSID extracts the SSID string from an IE section. An empty or
// zero-length SSID element is treated as the hidden-SSID sentinel.
func ParseSSID(data []byte) (string, bool, error) {
	val, err := FindUnique(data, TagSSID)
	if err != nil {
		return "", false, err
	}
	if val == nil {
		return "", false, nil
	}
	if len(val) == 0 {
		return "", true, nil
	}
	return string(val), false, nil
}

// BuildSSID emits the SSID element, tag 0.
func BuildSSID(ssid string) []byte {
	return buildTLV(nil, TagSSID, []byte(ssid))
}
