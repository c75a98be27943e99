/*
Package httpprobe implements the HTTP-probe rendering strategy.

The external service exposes no documented API, and the endpoints it answers on have
changed over time. The strategy therefore walks an ordered list of candidate request
shapes (method, path, body encoding, field name) and accepts the first response whose
body passes the image check. Candidate lists are configuration, not fact.
*/
package httpprobe
