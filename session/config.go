package session

import "time"

// Config defines a FIX 4.4 session. Zero-valued durations and counts take
// the defaults below; check panics on a value that is out of range.
type Config struct {
	BeginString string // defaults to "FIX.4.4"

	SenderCompID string
	TargetCompID string

	// HeartBtInt is the negotiated heartbeat interval in seconds,
	// exchanged in Logon tag 108. Must be in [1, 3600]; default 30.
	HeartBtInt int

	// HeartbeatGrace is the additional time allowed to elapse after a
	// TestRequest before the connection is considered unresponsive and
	// torn down. Default 20% of HeartBtInt, minimum 1 second.
	HeartbeatGrace time.Duration

	// ConnectTimeout bounds TCP dial and the Logon-reply exchange.
	// Default 10s.
	ConnectTimeout time.Duration

	// LogoutTimeout bounds the wait for the peer's Logout reply once
	// one has been sent locally. Default 2s.
	LogoutTimeout time.Duration

	// ResetOnLogon sends Logon with ResetSeqNumFlag=Y and resets both
	// sequence counters to 1 before sending.
	ResetOnLogon bool

	// Username and Password, carried in Logon tags 553/554 when set.
	Username string
	Password string
}

func (c *Config) check() *Config {
	if c.BeginString == "" {
		c.BeginString = "FIX.4.4"
	}
	if c.HeartBtInt == 0 {
		c.HeartBtInt = 30
	} else if c.HeartBtInt < 1 || c.HeartBtInt > 3600 {
		panic("session: HeartBtInt not in [1, 3600]")
	}
	if c.HeartbeatGrace == 0 {
		c.HeartbeatGrace = time.Duration(c.HeartBtInt) * time.Second / 5
		if c.HeartbeatGrace < time.Second {
			c.HeartbeatGrace = time.Second
		}
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	} else if c.ConnectTimeout < time.Second || c.ConnectTimeout > 255*time.Second {
		panic("session: ConnectTimeout not in [1, 255]s")
	}
	if c.LogoutTimeout == 0 {
		c.LogoutTimeout = 2 * time.Second
	} else if c.LogoutTimeout < time.Second || c.LogoutTimeout > 255*time.Second {
		panic("session: LogoutTimeout not in [1, 255]s")
	}
	return c
}
