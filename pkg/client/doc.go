// Package client sends SOAP requests over HTTP and interprets the replies.
//
// The caller builds the envelope; the client posts it with the content type
// and action header of the configured SOAP version. Fault replies go through
// a fault.Resolver and come back as errors. Other replies have their body
// payload unmarshalled, through a transform when one is configured.
//
//	c, err := client.New("https://billing.example.com/ws",
//	    client.WithUnmarshaller(binder),
//	    client.WithResolver(fault.NewResolver(fault.WithDecoder(dec))),
//	)
//	resp, err := c.Call(ctx, "urn:GetAccount", envelope, nil)
//
// Timeouts and cancellation belong to the caller's context and to the
// http.Client; nothing below the client retries.
package client
