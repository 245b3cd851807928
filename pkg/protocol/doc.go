// Package protocol implements the Escea fireplace LAN frame codec.
//
// The appliance exchanges fixed 15-byte frames as UDP datagrams, using the
// same layout for commands and responses:
//
//	[0]     start byte 0x47 ('G')
//	[1]     command / response ID
//	[2]     data length (0-10)
//	[3..12] data (zero filled past the data length)
//	[13]    checksum: sum of bytes 1..12, modulo 255
//	[14]    end byte 0x46 ('F')
//
// Commands carry at most one data byte (a setting value). Responses carry
// either no data (acknowledgements), a 9-byte status block, a 6-byte
// identity block (discovery replies), or a 1-byte reject reason.
//
// The codec is strict in both directions: EncodeCommand refuses
// out-of-range values before any bytes are produced, and ParseResponse
// either returns a fully validated frame or an error wrapping
// ErrMalformedFrame. Partial or ambiguous frames are never surfaced.
package protocol
