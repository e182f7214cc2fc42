package repository

var PingBackoff = pingBackoff
