package camera

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/snksoft/crc"
)

/* bridge wire format

Every line in both directions is

	<body>*<CRC>\r

where CRC is the CRC-16/XMODEM of body as four upper case hex digits.
Replies have a body of "OK" or "OK <payload>" on success, "ERR <message>"
on failure.
*/

var (
	crcTable = crc.NewTable(crc.XMODEM)

	// ErrChecksum is returned when a reply's CRC does not match its body
	ErrChecksum = errors.New("camera bridge: checksum mismatch")

	// ErrMalformedReply is returned for replies that are neither OK nor ERR
	ErrMalformedReply = errors.New("camera bridge: malformed reply")
)

// BridgeError is an ERR reply from the bridge
type BridgeError struct {
	// Cmd is the command verb that failed
	Cmd string

	// Msg is the bridge's message
	Msg string
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("camera bridge: %s failed: %s", e.Cmd, e.Msg)
}

// checksum computes the CRC-16/XMODEM of body in a concurrent safe way
func checksum(body string) uint16 {
	c := crcTable.InitCrc()
	c = crcTable.UpdateCrc(c, []byte(body))
	return crcTable.CRC16(c)
}

// Frame appends the checksum to body.  The terminator is added by comm.
func Frame(body string) []byte {
	return []byte(fmt.Sprintf("%s*%04X", body, checksum(body)))
}

// Unframe verifies and strips the checksum of a line
func Unframe(line []byte) (string, error) {
	s := strings.TrimRight(string(line), "\r\n")
	idx := strings.LastIndexByte(s, '*')
	if idx < 0 || len(s)-idx-1 != 4 {
		return "", ErrMalformedReply
	}
	body, sum := s[:idx], s[idx+1:]
	want, err := strconv.ParseUint(sum, 16, 16)
	if err != nil {
		return "", ErrMalformedReply
	}
	if uint16(want) != checksum(body) {
		return "", ErrChecksum
	}
	return body, nil
}

// parseReply interprets an unframed reply to the command verb cmd, returning
// the payload of an OK
func parseReply(cmd, body string) (string, error) {
	switch {
	case body == "OK":
		return "", nil
	case strings.HasPrefix(body, "OK "):
		return body[3:], nil
	case body == "ERR":
		return "", &BridgeError{Cmd: cmd, Msg: "unspecified"}
	case strings.HasPrefix(body, "ERR "):
		return "", &BridgeError{Cmd: cmd, Msg: body[4:]}
	default:
		return "", ErrMalformedReply
	}
}
