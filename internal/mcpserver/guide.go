package mcpserver

// Guide explains how an assistant should drive the card.
const Guide = `# Keepsake card

The card is sealed by a four-tumbler combination lock. Each tumbler shows a
digit from 0 to 9 and wraps around in both directions.

1. Call ` + "`lock_status`" + ` to see the current digits.
2. Call ` + "`turn_tumbler`" + ` with a position (0 to 3, left to right) and a
   direction (` + "`up`" + ` or ` + "`down`" + `) to move one tumbler by one step.
3. When the digits match the secret code the lock reports ` + "`unlocking`" + `,
   then ` + "`unlocked`" + ` shortly after. Turns are ignored from then on.
4. Once unlocked, ` + "`list_keepsakes`" + ` and ` + "`read_keepsake`" + ` reveal the contents.

` + "`list_tracks`" + ` works at any time and reports whether the playlist is
still loading.
`
