// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// A Conversation is a server-side thread identified by its session ID.
// A Message is one entry in a timeline, carrying a client-local ID used
// only for UI reconciliation.
package model
