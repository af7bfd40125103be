// Package utils provides shared utility functions and constants
package utils

// ContextKeySession is the key used to store the opened session in the echo context
const ContextKeySession = "session"

// ContextKeyClient is the key used to store the authenticated storage client in the echo context
const ContextKeyClient = "client"

// CookieName is the name of the session cookie
const CookieName = "CosSession"
