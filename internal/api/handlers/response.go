// Package handlers implements the HTTP handlers for the task tracking API.
// Every response uses the same envelope: {success, message, data}. Handlers
// authorize through the central engine before touching any repository, and
// record mutations with the audit recorder after they succeed.
package handlers

import "github.com/gin-gonic/gin"

// respond writes the standard response envelope.
func respond(c *gin.Context, status int, success bool, message string, data any) {
	c.JSON(status, gin.H{
		"success": success,
		"message": message,
		"data":    data,
	})
}

// Success writes a successful envelope with the given status code.
func Success(c *gin.Context, status int, message string, data any) {
	respond(c, status, true, message, data)
}

// Error writes a failure envelope with the given status code. Data is always
// null on failures.
func Error(c *gin.Context, status int, message string) {
	respond(c, status, false, message, nil)
}
