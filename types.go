package walter

import (
	"time"
)

// Result is the outcome code carried by every completed command response.
type Result int

const (
	ResultOK Result = iota
	ResultError
	ResultTimeout
	ResultNoMemory
	ResultNoSuchPDPContext
	ResultNoFreeSocket
	ResultNoSuchSocket
	ResultNoSuchProfile
	ResultNotExpectingRing
	ResultAwaitingRing
	ResultBusy
	ResultNoData
)

// String returns a short name for the result code.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultError:
		return "error"
	case ResultTimeout:
		return "timeout"
	case ResultNoMemory:
		return "no memory"
	case ResultNoSuchPDPContext:
		return "no such PDP context"
	case ResultNoFreeSocket:
		return "no free socket"
	case ResultNoSuchSocket:
		return "no such socket"
	case ResultNoSuchProfile:
		return "no such profile"
	case ResultNotExpectingRing:
		return "not expecting ring"
	case ResultAwaitingRing:
		return "awaiting ring"
	case ResultBusy:
		return "busy"
	case ResultNoData:
		return "no data"
	default:
		return "unknown result"
	}
}

// RspKind discriminates the payload carried by a Rsp.
type RspKind int

const (
	RspNoData RspKind = iota
	RspOpState
	RspRAT
	RspRSSI
	RspSignalQuality
	RspSIMState
	RspCMEError
	RspBandsetConfig
	RspPDPAddr
	RspSocketID
	RspGNSSAssistanceData
	RspClock
	RspMQTT
	RspHTTP
	RspCoap
	RspCellInfo
	RspRegState
)

// CmdKind selects how the engine drives a command on the wire.
type CmdKind int

const (
	// CmdTx transmits and completes immediately without waiting.
	CmdTx CmdKind = iota
	// CmdTxWait transmits and waits for the expected response.
	CmdTxWait
	// CmdWait transmits nothing and waits for the expected response. Used
	// to await +SYSSTART after a reset.
	CmdWait
	// CmdDataTxWait transmits, waits for a data prompt, sends the payload
	// and then waits for the expected response.
	CmdDataTxWait
)

// OpState is the operational state of the modem.
type OpState int

const (
	OpStateMinimum       OpState = 0
	OpStateFull          OpState = 1
	OpStateNoRF          OpState = 4
	OpStateManufacturing OpState = 5
)

// NetworkRegState is the network registration state of the modem.
type NetworkRegState int

const (
	RegNotSearching                    NetworkRegState = 0
	RegRegisteredHome                  NetworkRegState = 1
	RegSearching                       NetworkRegState = 2
	RegDenied                          NetworkRegState = 3
	RegUnknown                         NetworkRegState = 4
	RegRegisteredRoaming               NetworkRegState = 5
	RegRegisteredSMSOnlyHome           NetworkRegState = 6
	RegRegisteredSMSOnlyRoaming        NetworkRegState = 7
	RegAttachedEmergencyOnly           NetworkRegState = 8
	RegRegisteredCSFBNotPreferredHome  NetworkRegState = 9
	RegRegisteredCSFBNotPrefRoaming    NetworkRegState = 10
	RegRegisteredTempConnLoss          NetworkRegState = 80
)

// Registered returns true when the state grants packet service.
func (s NetworkRegState) Registered() bool {
	return s == RegRegisteredHome || s == RegRegisteredRoaming
}

// SIMState is the state of the installed SIM card.
type SIMState int

const (
	SIMReady SIMState = iota
	SIMPINRequired
	SIMPUKRequired
	SIMPhoneToSIMPINRequired
	SIMPhoneToFirstSIMPINRequired
	SIMPhoneToFirstSIMPUKRequired
	SIMPIN2Required
	SIMPUK2Required
	SIMNetworkPINRequired
	SIMNetworkPUKRequired
	SIMNetworkSubsetPINRequired
	SIMNetworkSubsetPUKRequired
	SIMServiceProviderPINRequired
	SIMServiceProviderPUKRequired
	SIMCorporateSIMRequired
	SIMCorporatePUKRequired
)

// RAT is a radio access technology.
type RAT int

const (
	RATLTEM  RAT = 1
	RATNBIoT RAT = 2
)

// NetworkSelMode selects how the modem picks an operator.
type NetworkSelMode int

const (
	NetworkSelAutomatic          NetworkSelMode = 0
	NetworkSelManual             NetworkSelMode = 1
	NetworkSelUnregister         NetworkSelMode = 2
	NetworkSelManualAutoFallback NetworkSelMode = 4
)

// OperatorFormat is the representation of an operator name.
type OperatorFormat int

const (
	OperatorFormatLongAlphanumeric  OperatorFormat = 0
	OperatorFormatShortAlphanumeric OperatorFormat = 1
	OperatorFormatNumeric           OperatorFormat = 2
)

// CMEErrorReports selects the CME error reporting verbosity.
type CMEErrorReports int

const (
	CMEErrorReportsOff     CMEErrorReports = 0
	CMEErrorReportsNumeric CMEErrorReports = 1
	CMEErrorReportsVerbose CMEErrorReports = 2
)

// CEREGReports selects the CEREG unsolicited reporting verbosity.
type CEREGReports int

const (
	CEREGReportsOff                     CEREGReports = 0
	CEREGReportsEnabled                 CEREGReports = 1
	CEREGReportsEnabledWithLocation     CEREGReports = 2
	CEREGReportsEnabledWithLocationEMM  CEREGReports = 3
	CEREGReportsEnabledUEPSMWithLoc     CEREGReports = 4
	CEREGReportsEnabledUEPSMWithLocEMM  CEREGReports = 5
)

// SQNMONIReports selects the scope of a cell information query.
type SQNMONIReports int

const (
	SQNMONIServingCell         SQNMONIReports = 0
	SQNMONIIntraFrequencyCells SQNMONIReports = 1
	SQNMONIInterFrequencyCells SQNMONIReports = 2
	SQNMONIAllCells            SQNMONIReports = 7
	SQNMONIServingCellWithCINR SQNMONIReports = 9
)

// CMEError is a numeric error from the mobile equipment error namespace.
type CMEError int

const (
	CMEEquipmentFailure         CMEError = 0
	CMENoConnection             CMEError = 1
	CMEPhoneAdapterLinkReserved CMEError = 2
	CMEOperationNotAllowed      CMEError = 3
	CMEOperationNotSupported    CMEError = 4
	CMEPhSIMPINRequired         CMEError = 5
	CMEPhFSIMPINRequired        CMEError = 6
	CMEPhFSIMPUKRequired        CMEError = 7
	CMESIMNotInserted           CMEError = 10
	CMESIMPINRequired           CMEError = 11
	CMESIMPUKRequired           CMEError = 12
	CMESIMFailure               CMEError = 13
	CMESIMBusy                  CMEError = 14
	CMESIMWrong                 CMEError = 15
	CMEIncorrectPassword        CMEError = 16
	CMESIMPIN2Required          CMEError = 17
	CMESIMPUK2Required          CMEError = 18
	CMEMemoryFull               CMEError = 20
	CMEInvalidIndex             CMEError = 21
	CMENotFound                 CMEError = 22
	CMEMemoryFailure            CMEError = 23
	CMETextStringTooLong        CMEError = 24
	CMEInvalidCharsInTextString CMEError = 25
	CMEDialStringTooLong        CMEError = 26
	CMEInvalidCharsInDialString CMEError = 27
	CMENoNetworkService         CMEError = 30
	CMENetworkTimeout           CMEError = 31
	CMEEmergencyCallsOnly       CMEError = 32
	CMENetworkPINRequired       CMEError = 40
	CMENetworkPUKRequired       CMEError = 41
	CMENetworkSubsetPINRequired CMEError = 42
	CMENetworkSubsetPUKRequired CMEError = 43
	CMEServiceProvPINRequired   CMEError = 44
	CMEServiceProvPUKRequired   CMEError = 45
	CMECorporatePINRequired     CMEError = 46
	CMECorporatePUKRequired     CMEError = 47
	CMEHiddenKeyRequired        CMEError = 48
	CMEEAPMethodNotSupported    CMEError = 49
	CMEIncorrectParameters      CMEError = 50
	CMESystemFailure            CMEError = 60
	CMEUnknownError             CMEError = 100
	CMEUpgradeFailedGeneral     CMEError = 528
	CMEUpgradeFailedCorrupted   CMEError = 529
	CMEUpgradeFailedInvalidSig  CMEError = 530
	CMEUpgradeFailedNetwork     CMEError = 531
	CMEUpgradeFailedInProgress  CMEError = 532
	CMEUpgradeCancelFailed      CMEError = 533
	CMEHwConfigFailedGeneral    CMEError = 540
	CMEHwConfigFailedInvalidFn  CMEError = 541
	CMEHwConfigFailedInvalidPar CMEError = 542
	CMEHwConfigFailedPinsInUse  CMEError = 543
	CMEWrongState               CMEError = 551
)

// PDP context related enums.

// PDPType is a packet data protocol type.
type PDPType string

const (
	PDPTypeX25    PDPType = "X.25"
	PDPTypeIP     PDPType = "IP"
	PDPTypeIPv6   PDPType = "IPV6"
	PDPTypeIPv4v6 PDPType = "IPV4V6"
	PDPTypeOSPIH  PDPType = "OPSIH"
	PDPTypePPP    PDPType = "PPP"
	PDPTypeNonIP  PDPType = "Non-IP"
)

// PDPHeaderCompression is a PDP header compression mechanism.
type PDPHeaderCompression int

const (
	PDPHeaderCompOff     PDPHeaderCompression = 0
	PDPHeaderCompOn      PDPHeaderCompression = 1
	PDPHeaderCompRFC1144 PDPHeaderCompression = 2
	PDPHeaderCompRFC2507 PDPHeaderCompression = 3
	PDPHeaderCompRFC3095 PDPHeaderCompression = 4
	PDPHeaderCompUnspec  PDPHeaderCompression = 99
)

// PDPDataCompression is a PDP data compression mechanism.
type PDPDataCompression int

const (
	PDPDataCompOff    PDPDataCompression = 0
	PDPDataCompOn     PDPDataCompression = 1
	PDPDataCompV42bis PDPDataCompression = 2
	PDPDataCompV44    PDPDataCompression = 3
	PDPDataCompUnspec PDPDataCompression = 99
)

// PDPIPv4AddrAlloc is an IPv4 address allocation method.
type PDPIPv4AddrAlloc int

const (
	PDPIPv4AddrAllocNAS  PDPIPv4AddrAlloc = 0
	PDPIPv4AddrAllocDHCP PDPIPv4AddrAlloc = 1
)

// PDPRequestType is a PDP context activation request type.
type PDPRequestType int

const (
	PDPRequestNewOrHandover      PDPRequestType = 0
	PDPRequestEmergency          PDPRequestType = 1
	PDPRequestNew                PDPRequestType = 2
	PDPRequestHandover           PDPRequestType = 3
	PDPRequestEmergencyHandover  PDPRequestType = 4
)

// PDPPCSCFDiscovery is a P-CSCF discovery method.
type PDPPCSCFDiscovery int

const (
	PDPPCSCFAuto PDPPCSCFDiscovery = 0
	PDPPCSCFNAS  PDPPCSCFDiscovery = 1
)

// PDPAuthProtocol is a PDP context authentication protocol.
type PDPAuthProtocol int

const (
	PDPAuthNone PDPAuthProtocol = 0
	PDPAuthPAP  PDPAuthProtocol = 1
	PDPAuthCHAP PDPAuthProtocol = 2
)

// PDPContextState is the lifecycle state of a PDP context table entry.
type PDPContextState int

const (
	PDPContextFree PDPContextState = iota
	PDPContextReserved
	PDPContextInactive
	PDPContextActive
	PDPContextAttached
)

// PDPContext is an entry of the library-owned PDP context mirror table.
type PDPContext struct {
	ID    int
	State PDPContextState

	APN  string
	Type PDPType

	PDPAddress        string
	HeaderComp        PDPHeaderCompression
	DataComp          PDPDataCompression
	IPv4AllocMethod   PDPIPv4AddrAlloc
	RequestType       PDPRequestType
	PCSCFMethod       PDPPCSCFDiscovery
	ForIMCN           bool
	UseNSLPI          bool
	UseSecurePCO      bool
	UseNASIPv4MTU     bool
	UseLocalAddrInd   bool
	UseNASNonIPMTU    bool
	AuthProto         PDPAuthProtocol
	AuthUser          string
	AuthPass          string
}

// Socket related enums.

// SocketState is the lifecycle state of a socket table entry.
type SocketState int

const (
	SocketFree SocketState = iota
	SocketReserved
	SocketCreated
	SocketConfigured
	SocketOpened
	SocketListening
	SocketClosed
)

// SocketProto is the transport protocol of a socket.
type SocketProto int

const (
	SocketProtoTCP SocketProto = 0
	SocketProtoUDP SocketProto = 1
)

// SocketAcceptAnyRemote selects how a socket treats traffic from hosts other
// than its configured remote.
type SocketAcceptAnyRemote int

const (
	AcceptAnyRemoteDisabled    SocketAcceptAnyRemote = 0
	AcceptAnyRemoteRXOnly      SocketAcceptAnyRemote = 1
	AcceptAnyRemoteRXAndTX     SocketAcceptAnyRemote = 2
)

// RAI is the NB-IoT release assistance information attached to a send.
type RAI int

const (
	RAINoInfo                RAI = 0
	RAINoFurtherRXTXExpected RAI = 1
	RAIOnlySingleRXTX        RAI = 2
)

// Socket is an entry of the library-owned socket mirror table.
type Socket struct {
	ID    int
	State SocketState

	PDPContextID    int
	MTU             int
	ExchangeTimeout int
	ConnTimeout     int
	SendDelayMs     int
	Protocol        SocketProto
	AcceptAnyRemote SocketAcceptAnyRemote
	RemoteHost      string
	RemotePort      int
	LocalPort       int
}

// HTTP related types.

// HTTPContextState tracks the ring protocol of an HTTP profile.
type HTTPContextState int

const (
	HTTPContextIdle HTTPContextState = iota
	HTTPContextExpectRing
	HTTPContextGotRing
)

// HTTPContext is an entry of the library-owned HTTP profile mirror table.
type HTTPContext struct {
	Connected     bool
	State         HTTPContextState
	HTTPStatus    int
	ContentLength int
	ContentType   string
}

// HTTPResponse is a fetched HTTP response body with its ring metadata.
type HTTPResponse struct {
	HTTPStatus    int
	ContentLength int
	ContentType   string
	Data          []byte
}

// HTTPQueryCmd selects the method of an HTTP query operation.
type HTTPQueryCmd int

const (
	HTTPQueryGet    HTTPQueryCmd = 0
	HTTPQueryHead   HTTPQueryCmd = 1
	HTTPQueryDelete HTTPQueryCmd = 2
)

// HTTPSendCmd selects the method of an HTTP send operation.
type HTTPSendCmd int

const (
	HTTPSendPost HTTPSendCmd = 0
	HTTPSendPut  HTTPSendCmd = 1
)

// HTTPPostParam selects the content type of an HTTP send operation.
type HTTPPostParam int

const (
	HTTPPostParamURLEncoded  HTTPPostParam = 0
	HTTPPostParamTextPlain   HTTPPostParam = 1
	HTTPPostParamOctetStream HTTPPostParam = 2
	HTTPPostParamFormData    HTTPPostParam = 3
	HTTPPostParamJSON        HTTPPostParam = 4
	HTTPPostParamUnspecified HTTPPostParam = 99
)

// MQTT related types.

// MQTTStatus is the MQTT connection status mirror.
type MQTTStatus int

const (
	MQTTDisconnected MQTTStatus = iota
	MQTTConnected
)

// MQTTResultCode is the result code reported by the modem MQTT stack.
type MQTTResultCode int

const (
	MQTTSuccess        MQTTResultCode = 0
	MQTTErrNoMem       MQTTResultCode = -1
	MQTTErrProtocol    MQTTResultCode = -2
	MQTTErrInval       MQTTResultCode = -3
	MQTTErrNoConn      MQTTResultCode = -4
	MQTTErrConnRefused MQTTResultCode = -5
	MQTTErrNotFound    MQTTResultCode = -6
	MQTTErrConnLost    MQTTResultCode = -7
	MQTTErrTLS         MQTTResultCode = -8
	MQTTErrPayloadSize MQTTResultCode = -9
	MQTTErrNotSupported MQTTResultCode = -10
	MQTTErrAuth        MQTTResultCode = -11
	MQTTErrACLDenied   MQTTResultCode = -12
	MQTTErrUnknown     MQTTResultCode = -13
	MQTTErrErrno       MQTTResultCode = -14
	MQTTErrEAI         MQTTResultCode = -15
	MQTTErrProxy       MQTTResultCode = -16
	MQTTErrUnavailable MQTTResultCode = -17
)

// MQTTMessage is an inbox slot describing a message the modem holds for us.
type MQTTMessage struct {
	Topic     string
	Length    int
	QoS       int
	MessageID string
	Free      bool
}

// MQTTSubscription is a (topic, QoS) pair the library tracks so it can
// resubscribe after a reconnect or a deep sleep cycle.
type MQTTSubscription struct {
	Topic string
	QoS   int
}

// MQTTResponse describes the origin of a fetched MQTT message.
type MQTTResponse struct {
	Topic string
	QoS   int
}

// CoAP related types.

// CoapType is the CoAP message type.
type CoapType int

const (
	CoapTypeCon CoapType = 0
	CoapTypeNon CoapType = 1
	CoapTypeAck CoapType = 2
	CoapTypeRst CoapType = 3
)

// CoapMethod is the CoAP request method.
type CoapMethod int

const (
	CoapMethodGet    CoapMethod = 1
	CoapMethodPost   CoapMethod = 2
	CoapMethodPut    CoapMethod = 3
	CoapMethodDelete CoapMethod = 4
)

// CoapReqResp discriminates a CoAP ring between request and response.
type CoapReqResp int

const (
	CoapIndicationRequest  CoapReqResp = 0
	CoapIndicationResponse CoapReqResp = 1
)

// CoapOptionAction selects what a CoAP option operation does.
type CoapOptionAction int

const (
	CoapOptionSet    CoapOptionAction = 0
	CoapOptionDelete CoapOptionAction = 1
	CoapOptionRead   CoapOptionAction = 2
	CoapOptionExtend CoapOptionAction = 3
)

// CoapCloseCause is the reason a CoAP context was closed.
type CoapCloseCause string

const (
	CoapClosedByUser     CoapCloseCause = "USER"
	CoapClosedByServer   CoapCloseCause = "SERVER"
	CoapClosedNATTimeout CoapCloseCause = "NAT_TIMEOUT"
	CoapClosedNetwork    CoapCloseCause = "NETWORK"
)

// CoapRing describes data the modem holds for a CoAP context.
type CoapRing struct {
	CtxID   int
	MsgID   int
	ReqResp CoapReqResp
	Type    CoapType
	Method  CoapMethod
	RspCode int
	Length  int
}

// CoapResponse is a received CoAP message.
type CoapResponse struct {
	CtxID   int
	MsgID   int
	Token   string
	ReqResp CoapReqResp
	Type    CoapType
	Method  CoapMethod
	RspCode int
	Length  int
	Payload []byte
}

// CoapOption is a single CoAP option read back from the modem.
type CoapOption struct {
	CtxID  int
	Option int
	Value  string
}

// CoapContext is an entry of the library-owned CoAP context mirror table.
type CoapContext struct {
	Configured bool
	Connected  bool
	Cause      CoapCloseCause
	Rings      []CoapRing
}

// GNSS related types.

// GNSSSensMode sets how long the GNSS receiver is actually on.
type GNSSSensMode int

const (
	GNSSSensLow    GNSSSensMode = 1
	GNSSSensMedium GNSSSensMode = 2
	GNSSSensHigh   GNSSSensMode = 3
)

// GNSSAcqMode is the GNSS acquisition mode.
type GNSSAcqMode int

const (
	GNSSAcqColdWarmStart GNSSAcqMode = 0
	GNSSAcqHotStart      GNSSAcqMode = 1
)

// GNSSLocMode is the GNSS location modus.
type GNSSLocMode int

const (
	GNSSLocOnDevice GNSSLocMode = 0
)

// GNSSAction is an action the GNSS receiver can execute.
type GNSSAction int

const (
	GNSSActionGetSingleFix GNSSAction = 0
	GNSSActionCancel       GNSSAction = 1
)

// GNSSFixStatus is the status of a GNSS fix.
type GNSSFixStatus int

const (
	GNSSFixReady          GNSSFixStatus = 0
	GNSSFixStoppedByUser  GNSSFixStatus = 1
	GNSSFixNoRTC          GNSSFixStatus = 2
	GNSSFixLTEConcurrency GNSSFixStatus = 3
)

// GNSSAssistanceType is a kind of GNSS assistance data.
type GNSSAssistanceType int

const (
	GNSSAssistanceAlmanac            GNSSAssistanceType = 0
	GNSSAssistanceRealtimeEphemeris  GNSSAssistanceType = 1
	GNSSAssistancePredictedEphemeris GNSSAssistanceType = 2
)

// GNSSSat is the reception quality of a single satellite in a fix.
type GNSSSat struct {
	SatNo          int
	SignalStrength int
}

// GNSSFix is a parsed GNSS fix.
type GNSSFix struct {
	Status              GNSSFixStatus
	FixID               int
	Timestamp           time.Time
	TimeToFix           int
	EstimatedConfidence float64
	Latitude            float64
	Longitude           float64
	Height              float64
	NorthSpeed          float64
	EastSpeed           float64
	DownSpeed           float64
	Sats                []GNSSSat
}

// GNSSAssistanceDetails describes one kind of assistance data.
type GNSSAssistanceDetails struct {
	Available    bool
	LastUpdate   int
	TimeToUpdate int
	TimeToExpire int
}

// GNSSAssistance groups the assistance data status of the receiver.
type GNSSAssistance struct {
	Almanac            GNSSAssistanceDetails
	RealtimeEphemeris  GNSSAssistanceDetails
	PredictedEphemeris GNSSAssistanceDetails
}

// TLS related enums.

// TLSValidation is the TLS validation policy of a security profile.
type TLSValidation int

const (
	TLSValidationNone     TLSValidation = 0
	TLSValidationCA       TLSValidation = 1
	TLSValidationURL      TLSValidation = 4
	TLSValidationURLAndCA TLSValidation = 5
)

// TLSVersion selects the TLS version of a security profile.
type TLSVersion int

const (
	TLSVersion10    TLSVersion = 0
	TLSVersion11    TLSVersion = 1
	TLSVersion12    TLSVersion = 2
	TLSVersion13    TLSVersion = 3
	TLSVersionReset TLSVersion = 255
)

// Power saving enums.

// PSMMode enables or disables power saving mode.
type PSMMode int

const (
	PSMDisable           PSMMode = 0
	PSMEnable            PSMMode = 1
	PSMDisableAndDiscard PSMMode = 2
)

// EDRXMode enables or disables eDRX.
type EDRXMode int

const (
	EDRXDisable            EDRXMode = 0
	EDRXEnable             EDRXMode = 1
	EDRXEnableWithURC      EDRXMode = 2
	EDRXDisableAndDiscard  EDRXMode = 3
)

// Operator identifies a network operator.
type Operator struct {
	Format OperatorFormat
	Name   string
}

// BandSelection is the configured band set for one RAT and operator.
type BandSelection struct {
	RAT      RAT
	Operator Operator
	Bands    []int
}

// SignalQuality groups the RSRQ and RSRP signal quality parameters.
type SignalQuality struct {
	// RSRQ in 10ths of dB.
	RSRQ int
	// RSRP in dBm.
	RSRP int
}

// CellInformation groups the cell monitoring response values.
type CellInformation struct {
	NetName string
	CC      int
	NC      int
	RSRP    float64
	CINR    float64
	RSRQ    float64
	TAC     int
	PCI     int
	EARFCN  int
	RSSI    float64
	Paging  int
	CID     int
	Band    int
	BW      int
	CELevel int
}

// Rsp is the response object populated while a command executes. The Kind
// field discriminates which payload field is valid; Result always carries
// the command outcome.
type Rsp struct {
	Result Result
	Kind   RspKind

	RegState        NetworkRegState
	OpState         OpState
	SIMState        SIMState
	CMEError        CMEError
	RAT             RAT
	RSSI            int
	SignalQuality   *SignalQuality
	BandSelConfig   []BandSelection
	PDPAddresses    []string
	SocketID        int
	GNSSAssistance  *GNSSAssistance
	Clock           time.Time
	MQTTResponse    *MQTTResponse
	MQTTResultCode  MQTTResultCode
	HTTPResponse    *HTTPResponse
	CoapResponse    *CoapResponse
	CoapOptions     []CoapOption
	CellInformation *CellInformation
}
