// Package backupcode generates, hashes, and redeems one-time recovery codes.
//
// Codes are 8 characters from an alphabet with no visually confusable
// characters (0, O, I, and 1 are excluded) and are presented to the user as two
// 4-character groups. Only salted Argon2id hashes are ever stored; a set is
// replaced as a whole on regeneration and a used entry can never become unused
// again.
package backupcode
