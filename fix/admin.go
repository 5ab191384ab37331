package fix

// Typed constructors for the standard FIX 4.4 administrative messages.
// Each sets tag 35 and any required body fields; the header tags
// 8, 9, 34, 49, 52, 56 and the trailer tag 10 are filled in by the
// session layer and the wire codec at send time.

func newAdmin(msgType string) *Message {
	fm := NewDictMap()
	fm.Set(NewField(TagMsgType, msgType))
	return &Message{fields: fm}
}

// NewLogon builds an "A" Logon. heartBtInt is the proposed heartbeat
// interval in seconds; resetSeqNum requests ResetSeqNumFlag=Y.
func NewLogon(heartBtInt int, resetSeqNum bool, username, password string) *Message {
	m := newAdmin(MsgTypeLogon)
	m.Set(TagEncryptMethod, "0")
	f, _ := NewIntField(TagHeartBtInt, int64(heartBtInt))
	m.SetField(f)
	if resetSeqNum {
		m.SetField(NewBoolField(TagResetSeqNumFlag, true))
	}
	if username != "" {
		m.Set(TagUsername, username)
	}
	if password != "" {
		m.Set(TagPassword, password)
	}
	return m
}

// NewLogout builds a "5" Logout, optionally carrying a human-readable
// reason in tag 58.
func NewLogout(text string) *Message {
	m := newAdmin(MsgTypeLogout)
	if text != "" {
		m.Set(TagText, text)
	}
	return m
}

// NewHeartbeat builds a "0" Heartbeat, echoing testReqID when it answers
// an outstanding TestRequest (empty otherwise).
func NewHeartbeat(testReqID string) *Message {
	m := newAdmin(MsgTypeHeartbeat)
	if testReqID != "" {
		m.Set(TagTestReqID, testReqID)
	}
	return m
}

// NewTestRequest builds a "1" TestRequest carrying a unique TestReqID.
func NewTestRequest(testReqID string) *Message {
	m := newAdmin(MsgTypeTestRequest)
	m.Set(TagTestReqID, testReqID)
	return m
}

// NewResendRequest builds a "2" ResendRequest for the inclusive range
// [begin, end]. end=0 means "to infinity".
func NewResendRequest(begin, end int) *Message {
	m := newAdmin(MsgTypeResendRequest)
	f, _ := NewIntField(TagBeginSeqNo, int64(begin))
	m.SetField(f)
	f, _ = NewIntField(TagEndSeqNo, int64(end))
	m.SetField(f)
	return m
}

// NewSequenceReset builds a "4" SequenceReset. gapFill sets GapFillFlag;
// newSeqNo is the sequence number to advance to.
func NewSequenceReset(gapFill bool, newSeqNo int) *Message {
	m := newAdmin(MsgTypeSequenceReset)
	m.SetField(NewBoolField(TagGapFillFlag, gapFill))
	f, _ := NewIntField(TagNewSeqNo, int64(newSeqNo))
	m.SetField(f)
	return m
}

// SessionRejectReason enumerates the standard tag 373 values used by
// NewReject for protocol-level (session) rejects.
type SessionRejectReason int

// Common session-reject reasons (FIX 4.4 tag 373 values).
const (
	RejectInvalidTagNumber     SessionRejectReason = 0
	RejectRequiredTagMissing   SessionRejectReason = 1
	RejectTagNotDefinedForType SessionRejectReason = 2
	RejectUndefinedTag         SessionRejectReason = 3
	RejectTagSpecifiedWithoutValue SessionRejectReason = 4
	RejectValueIncorrect       SessionRejectReason = 5
	RejectIncorrectDataFormat  SessionRejectReason = 6
	RejectCompIDProblem        SessionRejectReason = 9
	RejectOther                SessionRejectReason = 99
)

// NewReject builds a "3" Reject referencing the offending message's
// RefSeqNum and, optionally, RefTagID, for protocol errors that should
// not terminate the session.
func NewReject(refSeqNum int, refTagID Tag, reason SessionRejectReason, text string) *Message {
	m := newAdmin(MsgTypeReject)
	f, _ := NewIntField(TagRefSeqNum, int64(refSeqNum))
	m.SetField(f)
	if refTagID != 0 {
		f, _ = NewIntField(TagRefTagID, int64(refTagID))
		m.SetField(f)
	}
	f, _ = NewIntField(TagSessionRejectCode, int64(reason))
	m.SetField(f)
	if text != "" {
		m.Set(TagText, text)
	}
	return m
}
