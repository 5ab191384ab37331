package broker

import (
	"fmt"

	"github.com/fix44engine/fix44/fix"
)

// FromMessage builds the Envelope published for an outbound msg. raw is
// the already-encoded wire bytes, passed in rather than re-encoded here.
func FromMessage(msg *fix.Message, raw []byte) Envelope {
	top := msg.Fields().Fields()
	fields := make([][2]string, 0, len(top))
	for _, f := range top {
		text, _ := f.Text()
		fields = append(fields, [2]string{fmt.Sprintf("%d", int(f.Tag)), text})
	}
	msgType, _ := msg.MsgType()
	return Envelope{MsgType: msgType, Fields: fields, Raw: string(raw)}
}

// ToMessage rebuilds a *fix.Message from an injected Envelope, using dict
// for repeating-group templates when the message type carries any.
func (env Envelope) ToMessage(dict *fix.GroupDict) (*fix.Message, error) {
	if env.MsgType == "" {
		return nil, fmt.Errorf("broker: envelope missing msg_type")
	}
	pairs := make([]fix.TagValue, 0, len(env.Fields)+1)
	pairs = append(pairs, fix.TagValue{Tag: fix.TagMsgType, Value: env.MsgType})
	for _, kv := range env.Fields {
		var tag fix.Tag
		if _, err := fmt.Sscanf(kv[0], "%d", &tag); err != nil {
			return nil, fmt.Errorf("broker: envelope field tag %q: %w", kv[0], err)
		}
		pairs = append(pairs, fix.TagValue{Tag: tag, Value: kv[1]})
	}
	return fix.NewMessage(pairs, dict)
}
