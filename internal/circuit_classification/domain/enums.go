package domain

import "strings"

type CellType string

const (
	CellCreate      CellType = "create"
	CellCreated     CellType = "created"
	CellCreate2     CellType = "create2"
	CellCreated2    CellType = "created2"
	CellCreatedFast CellType = "created_fast"
	CellCreateFast  CellType = "create_fast"
	CellDestroy     CellType = "destroy"
	CellRelay       CellType = "relay"
	CellRelayEarly  CellType = "relay_early"
	CellUnknown     CellType = "unknown"
)

type CellCommand string

const (
	CmdBegin                 CellCommand = "BEGIN"
	CmdBeginDir              CellCommand = "BEGIN_DIR"
	CmdConnected             CellCommand = "CONNECTED"
	CmdData                  CellCommand = "DATA"
	CmdEnd                   CellCommand = "END"
	CmdDrop                  CellCommand = "DROP"
	CmdSendme                CellCommand = "SENDME"
	CmdExtend                CellCommand = "EXTEND"
	CmdExtended              CellCommand = "EXTENDED"
	CmdExtend2               CellCommand = "EXTEND2"
	CmdExtended2             CellCommand = "EXTENDED2"
	CmdTruncate              CellCommand = "TRUNCATE"
	CmdTruncated             CellCommand = "TRUNCATED"
	CmdResolve               CellCommand = "RESOLVE"
	CmdResolved              CellCommand = "RESOLVED"
	CmdEstablishIntro        CellCommand = "ESTABLISH_INTRO"
	CmdEstablishRendezvous   CellCommand = "ESTABLISH_RENDEZVOUS"
	CmdIntroduce1            CellCommand = "INTRODUCE1"
	CmdIntroduce2            CellCommand = "INTRODUCE2"
	CmdRendezvous1           CellCommand = "RENDEZVOUS1"
	CmdRendezvous2           CellCommand = "RENDEZVOUS2"
	CmdIntroEstablished      CellCommand = "INTRO_ESTABLISHED"
	CmdRendezvousEstablished CellCommand = "RENDEZVOUS_ESTABLISHED"
	CmdIntroduceAck          CellCommand = "INTRODUCE_ACK"
	CmdSigCircPurpChanged    CellCommand = "SIG_CIRCPURPCHANGED"
	CmdSigNewCirc            CellCommand = "SIG_NEWCIRC"
	CmdSigNewStrm            CellCommand = "SIG_NEWSTRM"
	CmdUnknown               CellCommand = "UNKNOWN"
)

// CellTypes lists the closed set of cell types in wire order.
var CellTypes = []CellType{
	CellCreate, CellCreated, CellCreate2, CellCreated2, CellCreatedFast,
	CellCreateFast, CellDestroy, CellRelay, CellRelayEarly, CellUnknown,
}

// CellCommands lists the closed set of relay commands in wire order.
var CellCommands = []CellCommand{
	CmdBegin, CmdBeginDir, CmdConnected, CmdData, CmdEnd, CmdDrop, CmdSendme,
	CmdExtend, CmdExtended, CmdExtend2, CmdExtended2, CmdTruncate, CmdTruncated,
	CmdResolve, CmdResolved, CmdEstablishIntro, CmdEstablishRendezvous,
	CmdIntroduce1, CmdIntroduce2, CmdRendezvous1, CmdRendezvous2,
	CmdIntroEstablished, CmdRendezvousEstablished, CmdIntroduceAck,
	CmdSigCircPurpChanged, CmdSigNewCirc, CmdSigNewStrm, CmdUnknown,
}

var (
	knownTypes    = map[CellType]struct{}{}
	knownCommands = map[CellCommand]struct{}{}
)

func init() {
	for _, t := range CellTypes {
		knownTypes[t] = struct{}{}
	}
	for _, c := range CellCommands {
		knownCommands[c] = struct{}{}
	}
}

// ParseCellType matches raw case-insensitively; misses map to CellUnknown.
func ParseCellType(raw string) CellType {
	t := CellType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownTypes[t]; ok {
		return t
	}
	return CellUnknown
}

// ParseCellCommand matches raw case-insensitively; misses map to CmdUnknown.
func ParseCellCommand(raw string) CellCommand {
	c := CellCommand(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := knownCommands[c]; ok {
		return c
	}
	return CmdUnknown
}

// ComboLabel is the "{type}_{command}" key used by combination counts.
func ComboLabel(t CellType, c CellCommand) string {
	return string(t) + "_" + string(c)
}
