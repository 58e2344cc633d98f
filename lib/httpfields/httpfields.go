// Package httpfields pulls HTTP request and response fields out of the
// printable text of a reconstructed capture.
package httpfields

import (
	"fmt"
	"regexp"
)

// NoneParsed marks a field that was looked for and not found. It is kept
// verbatim in every rendering so it cannot be confused with a field that
// was parsed as empty.
const NoneParsed = "none_parsed"

type Request struct {
	Method   string `json:"restful_call"`
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	Resource string `json:"resource"`
	FullURL  string `json:"full_url"`
}

type Response struct {
	Code    string `json:"response_code"`
	Message string `json:"response_message"`
}

type Record struct {
	Request  Request  `json:"request_packet"`
	Response Response `json:"response_packet"`
}

var (
	requestRegex  = regexp.MustCompile(`(GET|POST|HEAD|TRACE|PUT)\s(\S*)\s(\S*)`)
	hostRegex     = regexp.MustCompile(`(?i)host:\s([\w.-]*)`)
	responseRegex = regexp.MustCompile(`(?m)^HTTP/[\d.]+\s(\d{3})\s([\w ]*)`)
)

// Extract never fails, fields without a match are set to NoneParsed. Only
// the first match of each pattern is used.
func Extract(text string) Record {
	req := Request{
		Method:   NoneParsed,
		Protocol: NoneParsed,
		Host:     NoneParsed,
		Resource: NoneParsed,
	}
	if groups := requestRegex.FindStringSubmatch(text); groups != nil {
		req.Method = groups[1]
		req.Resource = groups[2]
		req.Protocol = groups[3]
	}
	if groups := hostRegex.FindStringSubmatch(text); groups != nil {
		req.Host = groups[1]
	}
	// no normalization, a missing host stays visible in the url
	req.FullURL = req.Host + req.Resource

	res := Response{
		Code:    NoneParsed,
		Message: NoneParsed,
	}
	if groups := responseRegex.FindStringSubmatch(text); groups != nil {
		res.Code = groups[1]
		res.Message = groups[2]
	}

	return Record{Request: req, Response: res}
}

func (r Request) String() string {
	return fmt.Sprintf(
		"Restful Call: %s\nProtocol: %s\nHost: %s\nResource: %s\nFull URL: %s",
		r.Method, r.Protocol, r.Host, r.Resource, r.FullURL,
	)
}

func (r Response) String() string {
	return fmt.Sprintf("Response Code: %s\nResponse Message: %s", r.Code, r.Message)
}

func (r Record) String() string {
	return fmt.Sprintf("Request Packet: \n%s\nResponse Packet: \n%s", r.Request, r.Response)
}
