package clip

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Record is the recursive key/value tree the orchestration runtime uses to
// smuggle structured domain data through the recorder channel. Known entry
// keys are exposed through the named accessors below; everything else is
// reachable through First/All for forward compatibility.
type Record struct {
	Values []RecordEntry `json:"Values"`
}

// RecordEntry is one key/value pair inside a Record.
type RecordEntry struct {
	Key   string      `json:"Key"`
	Value RecordValue `json:"Value"`
}

// RecordValue is either a scalar (Text) or a nested Record. Exactly one of
// the two is populated; both empty means the value was absent or of an
// unrecognized shape.
type RecordValue struct {
	Text   string
	Record *Record
}

// UnmarshalJSON decodes a record value. Scalars become Text; objects with
// a Values array become nested Records; plain objects are folded into a
// Record with one entry per field (keys sorted for determinism, since JSON
// object order is not preserved by the decoder).
func (v *RecordValue) UnmarshalJSON(data []byte) error {
	v.Text = ""
	v.Record = nil
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &v.Text)
	case '{':
		var rec Record
		if err := json.Unmarshal(data, &rec); err == nil && rec.Values != nil {
			v.Record = &rec
			return nil
		}
		var fields map[string]RecordValue
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("record value: %w", err)
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rec = Record{Values: make([]RecordEntry, 0, len(fields))}
		for _, k := range keys {
			rec.Values = append(rec.Values, RecordEntry{Key: k, Value: fields[k]})
		}
		v.Record = &rec
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err == nil {
			v.Text = strconv.FormatBool(b)
		}
		return nil
	case '[':
		// Arrays appear only as Values containers, which the Record
		// decoder handles. A bare array here has no defined meaning.
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			v.Text = n.String()
		}
		return nil
	}
}

// MarshalJSON encodes a record value back to the wire shape.
func (v RecordValue) MarshalJSON() ([]byte, error) {
	if v.Record != nil {
		return json.Marshal(v.Record)
	}
	return json.Marshal(v.Text)
}

// First returns the value of the first entry with the given key.
func (r *Record) First(key string) (RecordValue, bool) {
	if r == nil {
		return RecordValue{}, false
	}
	for _, e := range r.Values {
		if e.Key == key {
			return e.Value, true
		}
	}
	return RecordValue{}, false
}

// All returns the values of every entry with the given key, in order.
func (r *Record) All(key string) []RecordValue {
	if r == nil {
		return nil
	}
	var out []RecordValue
	for _, e := range r.Values {
		if e.Key == key {
			out = append(out, e.Value)
		}
	}
	return out
}

// Text returns the scalar value of the first entry with the given key.
func (r *Record) Text(key string) (string, bool) {
	v, ok := r.First(key)
	if !ok || v.Record != nil {
		return "", false
	}
	return v.Text, true
}

// Record entry keys understood by the named accessors.
const (
	recInitiatingClaimsExchange        = "InitiatingClaimsExchange"
	recInitiatingBackendClaimsExchange = "InitiatingBackendClaimsExchange"
	recEnabledForUserJourneys          = "EnabledForUserJourneysTrue"
	recTechnicalProfileEnabled         = "TechnicalProfileEnabled"
	recTechnicalProfile                = "TechnicalProfile"
	recTechnicalProfileID              = "TechnicalProfileId"
	recProtocolProviderType            = "ProtocolProviderType"
	recGettingClaims                   = "GettingClaims"
	recHomeRealmDiscovery              = "HomeRealmDiscovery"
	recClaimsProviderSelection         = "ClaimsProviderSelection"
	recSelectedProvider                = "SelectedProvider"
	recClaimsTransformation            = "ClaimsTransformation"
	recTransformationID                = "Id"
	recInputClaim                      = "InputClaim"
	recOutputClaim                     = "OutputClaim"
	recDisplayControl                  = "DisplayControl"
	recDisplayControlAction            = "Action"
	recInvokingSubJourney              = "InvokingSubJourney"
	recSubJourneyCompleted             = "SubJourneyCompleted"
	recJourneyID                       = "Id"
	recJourneyName                     = "Name"
)

// ClaimsExchangeInfo describes an InitiatingClaimsExchange record: the
// technical profile the runtime committed to invoking.
type ClaimsExchangeInfo struct {
	TechnicalProfileID   string
	ProtocolProviderType string
}

// InitiatingClaimsExchange extracts the committed claims exchange, if the
// record carries one.
func (r *Record) InitiatingClaimsExchange() (ClaimsExchangeInfo, bool) {
	v, ok := r.First(recInitiatingClaimsExchange)
	if !ok || v.Record == nil {
		return ClaimsExchangeInfo{}, false
	}
	id, ok := v.Record.Text(recTechnicalProfileID)
	if !ok || id == "" {
		return ClaimsExchangeInfo{}, false
	}
	provider, _ := v.Record.Text(recProtocolProviderType)
	return ClaimsExchangeInfo{TechnicalProfileID: id, ProtocolProviderType: provider}, true
}

// EnabledTechnicalProfiles collects every TechnicalProfileEnabled.TechnicalProfile
// value nested under repeated EnabledForUserJourneysTrue groups, in
// encounter order. Duplicates are preserved; callers deduplicate.
func (r *Record) EnabledTechnicalProfiles() []string {
	var out []string
	for _, group := range r.All(recEnabledForUserJourneys) {
		if group.Record == nil {
			continue
		}
		for _, enabled := range group.Record.All(recTechnicalProfileEnabled) {
			if enabled.Record == nil {
				continue
			}
			if name, ok := enabled.Record.Text(recTechnicalProfile); ok && name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// BackendTechnicalProfile extracts the first
// GettingClaims → InitiatingBackendClaimsExchange → TechnicalProfileId
// chain, the fallback identity used when no front-channel exchange record
// is present.
func (r *Record) BackendTechnicalProfile() (string, bool) {
	for _, getting := range r.All(recGettingClaims) {
		if getting.Record == nil {
			continue
		}
		for _, e := range getting.Record.Values {
			if e.Key != recInitiatingBackendClaimsExchange || e.Value.Record == nil {
				continue
			}
			if id, ok := e.Value.Record.Text(recTechnicalProfileID); ok && id != "" {
				return id, true
			}
		}
	}
	return "", false
}

// HomeRealmDiscoveryOptions collects the claims-provider selections offered
// by a HomeRealmDiscovery record, in encounter order.
func (r *Record) HomeRealmDiscoveryOptions() []string {
	var out []string
	for _, hrd := range r.All(recHomeRealmDiscovery) {
		if hrd.Record == nil {
			continue
		}
		for _, sel := range hrd.Record.All(recClaimsProviderSelection) {
			if sel.Record != nil {
				if name, ok := sel.Record.Text(recTechnicalProfile); ok && name != "" {
					out = append(out, name)
				}
				continue
			}
			if sel.Text != "" {
				out = append(out, sel.Text)
			}
		}
	}
	return out
}

// SelectedProvider extracts the provider chosen in a home-realm-discovery
// selection record.
func (r *Record) SelectedProvider() (string, bool) {
	if s, ok := r.Text(recSelectedProvider); ok && s != "" {
		return s, true
	}
	for _, hrd := range r.All(recHomeRealmDiscovery) {
		if hrd.Record == nil {
			continue
		}
		if s, ok := hrd.Record.Text(recSelectedProvider); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// TransformationInfo describes one ClaimsTransformation record.
type TransformationInfo struct {
	ID           string
	InputClaims  []string
	OutputClaims []string
}

// ClaimsTransformations collects every ClaimsTransformation record with a
// non-empty id, in encounter order.
func (r *Record) ClaimsTransformations() []TransformationInfo {
	var out []TransformationInfo
	for _, ct := range r.All(recClaimsTransformation) {
		if ct.Record == nil {
			continue
		}
		id, ok := ct.Record.Text(recTransformationID)
		if !ok || id == "" {
			continue
		}
		info := TransformationInfo{ID: id}
		for _, in := range ct.Record.All(recInputClaim) {
			if in.Text != "" {
				info.InputClaims = append(info.InputClaims, in.Text)
			}
		}
		for _, outc := range ct.Record.All(recOutputClaim) {
			if outc.Text != "" {
				info.OutputClaims = append(info.OutputClaims, outc.Text)
			}
		}
		out = append(out, info)
	}
	return out
}

// DisplayControlInfo describes one DisplayControl action record, including
// any technical profiles and transformations invoked under the action.
type DisplayControlInfo struct {
	ID                string
	Action            string
	TechnicalProfiles []string
	Transformations   []TransformationInfo
}

// DisplayControls collects every DisplayControl record with a non-empty
// id, in encounter order.
func (r *Record) DisplayControls() []DisplayControlInfo {
	var out []DisplayControlInfo
	for _, dc := range r.All(recDisplayControl) {
		if dc.Record == nil {
			continue
		}
		id, ok := dc.Record.Text(recTransformationID)
		if !ok || id == "" {
			continue
		}
		info := DisplayControlInfo{ID: id}
		info.Action, _ = dc.Record.Text(recDisplayControlAction)
		for _, tp := range dc.Record.All(recTechnicalProfile) {
			if tp.Text != "" {
				info.TechnicalProfiles = append(info.TechnicalProfiles, tp.Text)
			}
		}
		info.Transformations = dc.Record.ClaimsTransformations()
		out = append(out, info)
	}
	return out
}

// SubJourneyInfo identifies a sub-journey referenced by a recorder record.
type SubJourneyInfo struct {
	ID   string
	Name string
}

// InvokingSubJourney extracts the sub-journey a step is entering, if the
// record announces one.
func (r *Record) InvokingSubJourney() (SubJourneyInfo, bool) {
	v, ok := r.First(recInvokingSubJourney)
	if !ok || v.Record == nil {
		return SubJourneyInfo{}, false
	}
	id, _ := v.Record.Text(recJourneyID)
	name, _ := v.Record.Text(recJourneyName)
	if id == "" && name == "" {
		return SubJourneyInfo{}, false
	}
	if id == "" {
		id = name
	}
	return SubJourneyInfo{ID: id, Name: name}, true
}

// SubJourneyCompleted reports whether the record announces a sub-journey
// return.
func (r *Record) SubJourneyCompleted() bool {
	_, ok := r.First(recSubJourneyCompleted)
	return ok
}
