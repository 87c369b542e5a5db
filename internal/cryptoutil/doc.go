// Package cryptoutil holds the hashing and message authentication used by
// preview cookies and export bundles.
//
// A Signer produces and checks MAC tags. HMACSigner keeps the key in
// process; KMSSigner delegates to an AWS KMS HMAC key so the secret never
// leaves KMS.
package cryptoutil
