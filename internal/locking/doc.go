// Package locking serializes ledger mutations per key. KeyedMutex covers a
// single process; RedisLocker extends the guarantee across instances sharing
// a Redis server.
package locking
