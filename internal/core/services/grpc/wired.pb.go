// Code in this file follows the shape protoc-gen-go would produce for the
// control-surface service (§4.10); it is hand-written because the example
// corpus this module was built against ships no .proto/.pb.go sources to
// regenerate from, and the daemon build never invokes a codegen step. The
// wire format is JSON (see codec.go), not the protobuf binary format — the
// field tags below are kept for documentation/familiarity only.

package grpc

// ConnectRequest starts a STA-role connection attempt (§4.10 Connect).
type ConnectRequest struct {
	IfIndex    int32  `protobuf:"varint,1,opt,name=if_index,json=ifIndex" json:"if_index"`
	Bssid      string `protobuf:"bytes,2,opt,name=bssid" json:"bssid"`
	Ssid       string `protobuf:"bytes,3,opt,name=ssid" json:"ssid"`
	Frequency  int32  `protobuf:"varint,4,opt,name=frequency" json:"frequency"`
	Capability uint32 `protobuf:"varint,5,opt,name=capability" json:"capability"`
	Akm        string `protobuf:"bytes,6,opt,name=akm" json:"akm"`
	Cipher     string `protobuf:"bytes,7,opt,name=cipher" json:"cipher"`
	Passphrase string `protobuf:"bytes,8,opt,name=passphrase" json:"passphrase"`
}

func (m *ConnectRequest) Reset()         { *m = ConnectRequest{} }
func (m *ConnectRequest) String() string { return "ConnectRequest" }
func (*ConnectRequest) ProtoMessage()    {}

// ConnectResponse reports the outcome of the completed connect attempt.
type ConnectResponse struct {
	Error string `protobuf:"bytes,1,opt,name=error" json:"error"`
}

func (m *ConnectResponse) Reset()         { *m = ConnectResponse{} }
func (m *ConnectResponse) String() string { return "ConnectResponse" }
func (*ConnectResponse) ProtoMessage()    {}

// DisconnectRequest tears down ifIndex's active connection (§4.10 Disconnect).
type DisconnectRequest struct {
	IfIndex int32 `protobuf:"varint,1,opt,name=if_index,json=ifIndex" json:"if_index"`
}

func (m *DisconnectRequest) Reset()         { *m = DisconnectRequest{} }
func (m *DisconnectRequest) String() string { return "DisconnectRequest" }
func (*DisconnectRequest) ProtoMessage()    {}

// DisconnectResponse is empty on success.
type DisconnectResponse struct{}

func (m *DisconnectResponse) Reset()         { *m = DisconnectResponse{} }
func (m *DisconnectResponse) String() string { return "DisconnectResponse" }
func (*DisconnectResponse) ProtoMessage()    {}

// GetOrderedNetworksRequest has no parameters; every configured profile is
// returned (§4.10 GetOrderedNetworks).
type GetOrderedNetworksRequest struct{}

func (m *GetOrderedNetworksRequest) Reset()         { *m = GetOrderedNetworksRequest{} }
func (m *GetOrderedNetworksRequest) String() string { return "GetOrderedNetworksRequest" }
func (*GetOrderedNetworksRequest) ProtoMessage()    {}

// NetworkProfileSummary is one entry in GetOrderedNetworksResponse.
type NetworkProfileSummary struct {
	Ssid     string `protobuf:"bytes,1,opt,name=ssid" json:"ssid"`
	Security string `protobuf:"bytes,2,opt,name=security" json:"security"`
	IsAp     bool   `protobuf:"varint,3,opt,name=is_ap,json=isAp" json:"is_ap"`
}

// GetOrderedNetworksResponse lists every configured network, SSID-ordered.
type GetOrderedNetworksResponse struct {
	Networks []*NetworkProfileSummary `protobuf:"bytes,1,rep,name=networks" json:"networks"`
}

func (m *GetOrderedNetworksResponse) Reset()         { *m = GetOrderedNetworksResponse{} }
func (m *GetOrderedNetworksResponse) String() string { return "GetOrderedNetworksResponse" }
func (*GetOrderedNetworksResponse) ProtoMessage()    {}

// StartAPRequest activates the AP role on an already-discovered netdev
// (§4.10 StartAP).
type StartAPRequest struct {
	IfIndex    int32  `protobuf:"varint,1,opt,name=if_index,json=ifIndex" json:"if_index"`
	Ssid       string `protobuf:"bytes,2,opt,name=ssid" json:"ssid"`
	Passphrase string `protobuf:"bytes,3,opt,name=passphrase" json:"passphrase"`
	Channel    int32  `protobuf:"varint,4,opt,name=channel" json:"channel"`
}

func (m *StartAPRequest) Reset()         { *m = StartAPRequest{} }
func (m *StartAPRequest) String() string { return "StartAPRequest" }
func (*StartAPRequest) ProtoMessage()    {}

// StartAPResponse is empty on success.
type StartAPResponse struct{}

func (m *StartAPResponse) Reset()         { *m = StartAPResponse{} }
func (m *StartAPResponse) String() string { return "StartAPResponse" }
func (*StartAPResponse) ProtoMessage()    {}

// StopAPRequest tears down an AP-role interface (§4.10 StopAP).
type StopAPRequest struct {
	IfIndex int32 `protobuf:"varint,1,opt,name=if_index,json=ifIndex" json:"if_index"`
}

func (m *StopAPRequest) Reset()         { *m = StopAPRequest{} }
func (m *StopAPRequest) String() string { return "StopAPRequest" }
func (*StopAPRequest) ProtoMessage()    {}

// StopAPResponse is empty on success.
type StopAPResponse struct{}

func (m *StopAPResponse) Reset()         { *m = StopAPResponse{} }
func (m *StopAPResponse) String() string { return "StopAPResponse" }
func (*StopAPResponse) ProtoMessage()    {}

// PushButtonRequest activates WSC Push-Button registration (§4.10 PushButton).
type PushButtonRequest struct {
	IfIndex int32 `protobuf:"varint,1,opt,name=if_index,json=ifIndex" json:"if_index"`
}

func (m *PushButtonRequest) Reset()         { *m = PushButtonRequest{} }
func (m *PushButtonRequest) String() string { return "PushButtonRequest" }
func (*PushButtonRequest) ProtoMessage()    {}

// PushButtonResponse is empty on success.
type PushButtonResponse struct{}

func (m *PushButtonResponse) Reset()         { *m = PushButtonResponse{} }
func (m *PushButtonResponse) String() string { return "PushButtonResponse" }
func (*PushButtonResponse) ProtoMessage()    {}

// GetStationStatusRequest asks for a STA-role interface's connection state
// (§4.10 GetStationStatus).
type GetStationStatusRequest struct {
	IfIndex int32 `protobuf:"varint,1,opt,name=if_index,json=ifIndex" json:"if_index"`
}

func (m *GetStationStatusRequest) Reset()         { *m = GetStationStatusRequest{} }
func (m *GetStationStatusRequest) String() string { return "GetStationStatusRequest" }
func (*GetStationStatusRequest) ProtoMessage()    {}

// GetStationStatusResponse reports the current connection snapshot.
type GetStationStatusResponse struct {
	State string `protobuf:"bytes,1,opt,name=state" json:"state"`
	Bssid string `protobuf:"bytes,2,opt,name=bssid" json:"bssid"`
	Ssid  string `protobuf:"bytes,3,opt,name=ssid" json:"ssid"`
}

func (m *GetStationStatusResponse) Reset()         { *m = GetStationStatusResponse{} }
func (m *GetStationStatusResponse) String() string { return "GetStationStatusResponse" }
func (*GetStationStatusResponse) ProtoMessage()    {}
