package netlink

// nl80211 command numbers (§6.1), the subset this daemon issues or observes.
const (
	nl80211CmdNewInterface     = 3
	nl80211CmdGetInterface     = 5
	nl80211CmdNewKey           = 6
	nl80211CmdDelKey           = 8
	nl80211CmdGetKey           = 7
	nl80211CmdSetKey           = 9
	nl80211CmdNewStation       = 12
	nl80211CmdDelStation       = 13
	nl80211CmdSetStation       = 11
	nl80211CmdNewScanResults   = 34
	nl80211CmdAuthenticate     = 37
	nl80211CmdAssociate        = 38
	nl80211CmdDeauthenticate   = 39
	nl80211CmdDisassociate     = 40
	nl80211CmdConnect          = 46
	nl80211CmdDisconnect       = 48
	nl80211CmdRegisterFrame    = 67
	nl80211CmdFrame            = 68
	nl80211CmdFrameTxStatus    = 69
	nl80211CmdSetRekeyOffload  = 110
	nl80211CmdStartAP          = 15
	nl80211CmdStopAP           = 16
	nl80211CmdSetBeacon        = 14
	nl80211CmdNotifyCQM        = 128
	nl80211CmdSetCQM           = 62
)

// nl80211 attribute numbers (§6.1), the subset this daemon encodes/decodes.
const (
	nl80211AttrIfindex    = 3
	nl80211AttrMAC        = 6
	nl80211AttrKeyData    = 7
	nl80211AttrKeyIdx     = 8
	nl80211AttrKeySeq     = 131
	nl80211AttrFrameType  = 101
	nl80211AttrFrameMatch = 97
	nl80211AttrFrame      = 51
	nl80211AttrSSID       = 52
	nl80211AttrStatusCode = 125
	nl80211AttrReasonCode = 54
	nl80211AttrAID        = 84
	nl80211AttrBSSID      = 34
	nl80211AttrCQMRSSIThold = 60
)
