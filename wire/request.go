package wire

// RequestHeader is the envelope every request frame carries ahead of its
// opcode-specific body: API key and version, a client-assigned correlation
// id echoed back in the response, and the client's self-reported id.
type RequestHeader struct {
	APIKey        int16
	APIVersion    int16
	CorrelationID int32
	ClientID      string
}

func (h *RequestHeader) Encode(e *Encoder) {
	e.PutInt16(h.APIKey)
	e.PutInt16(h.APIVersion)
	e.PutInt32(h.CorrelationID)
	e.PutString(h.ClientID)
}

func (h *RequestHeader) Decode(d *Decoder) error {
	var err error
	if h.APIKey, err = d.Int16(); err != nil {
		return err
	}
	if h.APIVersion, err = d.Int16(); err != nil {
		return err
	}
	if h.CorrelationID, err = d.Int32(); err != nil {
		return err
	}
	if h.ClientID, err = d.String(); err != nil {
		return err
	}
	return nil
}

// ResponseHeader is the envelope every response frame carries: just the
// correlation id that ties it back to the request that produced it.
type ResponseHeader struct {
	CorrelationID int32
}

func (h *ResponseHeader) Encode(e *Encoder) {
	e.PutInt32(h.CorrelationID)
}

func (h *ResponseHeader) Decode(d *Decoder) error {
	var err error
	h.CorrelationID, err = d.Int32()
	return err
}
