package ledger

import "context"

const defaultPageSize = 100

// TransactionCursor is a lazy pull iterator over an account's entries,
// ordered by created_at descending. It is finite and restartable: Reset
// rewinds to the newest entry and the next pass re-reads from the store.
//
// Usage:
//
//	cur := svc.ListTransactions(accountID)
//	for cur.Next(ctx) {
//	    e := cur.Entry()
//	    ...
//	}
//	if err := cur.Err(); err != nil { ... }
type TransactionCursor struct {
	store     Store
	accountID string
	pageSize  int

	buf    []Entry
	bufIdx int
	offset int
	done   bool
	err    error
	cur    Entry
}

func newTransactionCursor(store Store, accountID string, pageSize int) *TransactionCursor {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &TransactionCursor{store: store, accountID: accountID, pageSize: pageSize}
}

// Next advances to the next entry, fetching a page when the buffer runs dry.
// It returns false at the end of the log or on error.
func (c *TransactionCursor) Next(ctx context.Context) bool {
	if c.err != nil || c.done {
		return false
	}
	if c.bufIdx >= len(c.buf) {
		page, err := c.store.ListEntries(ctx, c.accountID, c.offset, c.pageSize)
		if err != nil {
			c.err = err
			return false
		}
		if len(page) == 0 {
			c.done = true
			return false
		}
		c.buf = page
		c.bufIdx = 0
		c.offset += len(page)
	}
	c.cur = c.buf[c.bufIdx]
	c.bufIdx++
	return true
}

// Entry returns the entry positioned by the last successful Next.
func (c *TransactionCursor) Entry() Entry { return c.cur }

func (c *TransactionCursor) Err() error { return c.err }

// Reset rewinds the cursor so iteration starts over from the newest entry.
func (c *TransactionCursor) Reset() {
	c.buf = nil
	c.bufIdx = 0
	c.offset = 0
	c.done = false
	c.err = nil
	c.cur = Entry{}
}
