package ports

// nl80211 command and attribute numbers the STA/AP FSMs need to build
// Transport.Send requests and decode CommandResult/FrameHandler payloads
// (§6 "nl80211 wire contract"). These numbers are the stable kernel ABI;
// adapters/netlink re-derives the same values for its own internal
// dispatch bookkeeping.
const (
	CmdNewInterface    uint8 = 3
	CmdGetInterface    uint8 = 5
	CmdNewKey          uint8 = 6
	CmdGetKey          uint8 = 7
	CmdDelKey          uint8 = 8
	CmdSetKey          uint8 = 9
	CmdNewStation      uint8 = 12
	CmdDelStation      uint8 = 13
	CmdSetStation      uint8 = 11
	CmdAuthenticate    uint8 = 37
	CmdAssociate       uint8 = 38
	CmdDeauthenticate  uint8 = 39
	CmdDisassociate    uint8 = 40
	CmdConnect         uint8 = 46
	CmdDisconnect      uint8 = 48
	CmdRegisterFrame   uint8 = 67
	CmdFrame           uint8 = 68
	CmdFrameTxStatus   uint8 = 69
	CmdSetRekeyOffload uint8 = 110
	CmdStartAP         uint8 = 15
	CmdStopAP          uint8 = 16
	CmdSetBeacon       uint8 = 14
	CmdNotifyCQM       uint8 = 128
	CmdSetCQM          uint8 = 62
)

const (
	AttrIfindex           uint16 = 3
	AttrMAC               uint16 = 6
	AttrKeyData           uint16 = 7
	AttrKeyIdx            uint16 = 8
	AttrKeyCipher         uint16 = 9
	AttrKeySeq            uint16 = 131
	AttrKeyDefault        uint16 = 11
	AttrStaAID            uint16 = 16
	AttrStaFlags2         uint16 = 115
	AttrIE                uint16 = 41
	AttrAuthType          uint16 = 53
	AttrWiphyFreq         uint16 = 38
	AttrWPAVersions       uint16 = 75
	AttrCipherSuitesPairwise uint16 = 76
	AttrCipherSuiteGroup  uint16 = 77
	AttrAkmSuites         uint16 = 78
	AttrUseMFP            uint16 = 118
	AttrTimedOut          uint16 = 141
	AttrControlPort       uint16 = 67
	AttrFrameType         uint16 = 101
	AttrFrameMatch        uint16 = 97
	AttrFrame             uint16 = 51
	AttrSSID              uint16 = 52
	AttrStatusCode        uint16 = 125
	AttrReasonCode        uint16 = 54
	AttrAID               uint16 = 84
	AttrBSSID             uint16 = 34
	AttrCQMRSSIThold      uint16 = 60
	AttrRekeyData         uint16 = 139
	AttrRekeyDataKEK      uint16 = 1
	AttrRekeyDataKCK      uint16 = 2
	AttrRekeyDataReplayCtr uint16 = 3
	AttrPrevBSSID         uint16 = 74
	AttrIftype            uint16 = 5
)

// nl80211 interface type values (NL80211_IFTYPE_*) carried in AttrIftype,
// used by the orchestrator to pick STA-FSM vs AP-FSM per netdev (§4.8).
const (
	IftypeStation uint32 = 2
	IftypeAP      uint32 = 3
)

// AuthTypeFT is NL80211_AUTHTYPE_FT, the 802.11r over-the-air FT authentication
// algorithm number carried in an AUTHENTICATE command's AttrAuthType (§4.6
// Fast-BSS-Transition path).
const AuthTypeFT uint32 = 2

// StaFlagAuthorized is the NL80211_STA_FLAG_AUTHORIZED bit within a nested
// STA_FLAGS2 attribute (struct nl80211_sta_flag_update).
const StaFlagAuthorized = 1 << 1
