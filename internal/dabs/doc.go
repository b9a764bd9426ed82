// Package dabs drives the certificate validation application. It walks the queue of
// certificates awaiting validation, looks each one up on the records portal and attaches
// the downloaded scan as evidence.
//
// Every record ends in exactly one of two ways: it is submitted, which removes it from
// the queue, or it is skipped, which advances the skip counter past it. Only failures of
// the queue itself (login, paging, reading the table) abort the batch.
package dabs
