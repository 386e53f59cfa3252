// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import "strings"

// candidateTemplates are tried in this order; more common layouts first.
// {ip} is replaced with the host address.
var candidateTemplates = []string{
	"rtsp://{ip}:554/stream1",
	"rtsp://{ip}:554/live",
	"rtsp://{ip}/live1s1.sdp",
	"rtsp://{ip}:554/live1s1.sdp",
	"rtsp://{ip}:554/cam/realmonitor",
	"rtsp://{ip}:554/axis-media/media.amp",
	"rtsp://{ip}:554/onvif1",
	"rtsp://{ip}:554/h264Preview_01_main",
	"rtsp://{ip}:554/live/ch0",
	"rtsp://{ip}:554/streaming/channels/101",
	"rtsp://{ip}:554/11",
	"rtsp://{ip}:554/1",
	"rtsp://{ip}:8554/stream1",
	"rtsp://{ip}:8554/live",
	"rtsp://{ip}:8554/cam/realmonitor",
}

// CandidateURLs instantiates the fixed priority list for ip.
func CandidateURLs(ip string) []string {
	out := make([]string, len(candidateTemplates))
	for i, tpl := range candidateTemplates {
		out[i] = strings.ReplaceAll(tpl, "{ip}", ip)
	}
	return out
}

// Candidates returns the URLs a validation request will sweep, with
// credentials applied when both username and password are set.
func Candidates(req Request) []string {
	var urls []string
	if req.URL != "" {
		urls = []string{req.URL}
	} else {
		urls = CandidateURLs(req.IP)
	}
	if req.Username == "" || req.Password == "" {
		return urls
	}
	for i, u := range urls {
		urls[i] = AddAuthentication(u, req.Username, req.Password)
	}
	return urls
}
