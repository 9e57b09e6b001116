// Package panel implements the Panel capability: the Pimoroni GFX HAT with
// its 128x64 LCD, six-zone RGB backlight and six capacitive touch buttons.
//
// HAT keeps the framebuffer, the backlight colors and the per-button
// touch handlers. Drawing operations change the buffers; LCDShow and
// BacklightShow push them to the hardware.
//
// # Hardware
//
// On the board the HAT drives an ST7567 over SPI0.0 (DC on GPIO6, reset on
// GPIO5), an SN3218 LED driver at I2C 0x54 and a CAP1166 touch controller
// at I2C 0x2c, all through periph.io. The drivers only need a Tx method,
// so tests run them against recording fakes.
//
// # Touch events
//
// Events are delivered on a goroutine owned by the HAT. A remote client
// registers a handler with touch_on; the server forwards events on the
// "touch" notification topic and removes the client's handlers when its
// connection closes.
package panel
