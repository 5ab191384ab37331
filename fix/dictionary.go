package fix

// Tag numbers a single FIX field. The valid administrative and standard
// data-dictionary range is [1, 9999]; tags are resolved against a static
// table built ahead of time rather than through dynamic name aliasing.
type Tag int

// Header and trailer tags. These are managed by the Wire Codec and the
// session layer; user processors never set them directly.
const (
	TagBeginString  Tag = 8
	TagBodyLength   Tag = 9
	TagCheckSum     Tag = 10
	TagMsgSeqNum    Tag = 34
	TagMsgType      Tag = 35
	TagSenderCompID Tag = 49
	TagSendingTime  Tag = 52
	TagTargetCompID Tag = 56
)

// Session administrative field tags.
const (
	TagEncryptMethod     Tag = 98
	TagHeartBtInt        Tag = 108
	TagTestReqID         Tag = 112
	TagResetSeqNumFlag   Tag = 141
	TagPossDupFlag       Tag = 43
	TagOrigSendingTime   Tag = 122
	TagGapFillFlag       Tag = 123
	TagNewSeqNo          Tag = 36
	TagBeginSeqNo        Tag = 7
	TagEndSeqNo          Tag = 16
	TagRefSeqNum         Tag = 45
	TagRefTagID          Tag = 371
	TagRefMsgType        Tag = 372
	TagSessionRejectCode Tag = 373
	TagBusinessRejectRef Tag = 379
	TagBusinessRejectRsn Tag = 380
	TagUsername          Tag = 553
	TagPassword          Tag = 554
	TagText              Tag = 58
)

// Standard administrative message types (MsgType, tag 35).
const (
	MsgTypeHeartbeat      = "0"
	MsgTypeTestRequest    = "1"
	MsgTypeResendRequest  = "2"
	MsgTypeReject         = "3"
	MsgTypeSequenceReset  = "4"
	MsgTypeLogout         = "5"
	MsgTypeLogon          = "A"
)

// BeginStringFIX44 is the default for the "begin_string" configuration key.
const BeginStringFIX44 = "FIX.4.4"

// header and trailer tag sets, used by the codec to separate body tags
// from the tags it manages itself.
var headerTags = map[Tag]bool{
	TagBeginString:  true,
	TagBodyLength:   true,
	TagMsgType:      true,
	TagMsgSeqNum:    true,
	TagSenderCompID: true,
	TagSendingTime:  true,
	TagTargetCompID: true,
}

var trailerTags = map[Tag]bool{
	TagCheckSum: true,
}

// canonicalHeaderOrder lists the header tags (after 8, 9, 35) in the order
// the codec writes them on encode.
var canonicalHeaderOrder = []Tag{
	TagMsgSeqNum,
	TagSenderCompID,
	TagTargetCompID,
	TagSendingTime,
}

// minTag and maxTag bound the valid data-dictionary tag range.
const (
	minTag = 1
	maxTag = 9999
)

// userTagMin and userTagMax bound the user-defined tag range an
// unrecognised Set may still target.
const (
	userTagMin = 5000
	userTagMax = 9999
)

// knownTags collects every tag this package declares a meaning for:
// the header/trailer tags plus the standard administrative field tags.
// Set/SetField accept a tag outside this set only when it also falls in
// the user-defined [userTagMin, userTagMax] range.
var knownTags = map[Tag]bool{
	TagBeginString:       true,
	TagBodyLength:        true,
	TagCheckSum:          true,
	TagMsgSeqNum:         true,
	TagMsgType:           true,
	TagSenderCompID:      true,
	TagSendingTime:       true,
	TagTargetCompID:      true,
	TagEncryptMethod:     true,
	TagHeartBtInt:        true,
	TagTestReqID:         true,
	TagResetSeqNumFlag:   true,
	TagPossDupFlag:       true,
	TagOrigSendingTime:   true,
	TagGapFillFlag:       true,
	TagNewSeqNo:          true,
	TagBeginSeqNo:        true,
	TagEndSeqNo:          true,
	TagRefSeqNum:         true,
	TagRefTagID:          true,
	TagRefMsgType:        true,
	TagSessionRejectCode: true,
	TagBusinessRejectRef: true,
	TagBusinessRejectRsn: true,
	TagUsername:          true,
	TagPassword:          true,
	TagText:              true,
}

func userDefinedTag(t Tag) bool {
	return t >= userTagMin && t <= userTagMax
}

// validTag reports whether t may be assigned by Message.Set/SetField: it
// must be a tag this package recognizes (header, trailer, or standard
// administrative field) or fall inside the user-defined range. A
// mid-range tag with no declared meaning and outside [5000, 9999] is
// rejected with ErrInvalidTag.
func validTag(t Tag) bool {
	if t < minTag || t > maxTag {
		return false
	}
	return knownTags[t] || userDefinedTag(t)
}
