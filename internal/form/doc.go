// Package form validates subscription input locally before it is sent.
//
// Delivery targets are checked per platform: email addresses must parse as a
// bare address with a dotted domain, Discord targets must be https webhook
// URLs of the form https://discord.com/api/webhooks/{id}/{token}.
//
// Keywords keeps at most ten entries. Duplicates are detected after NFKC
// normalization and case folding, so "AI", "ai" and the full-width "ＡＩ" are
// the same keyword.
package form
