package templates

const offerTmpl = `
<div>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		Hey {{Name}},
	</p>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		Good news — {{Brand}} just sent you a collaboration offer for the campaign "{{CampaignTitle}}":
	</p>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		<table border="0" cellpadding="12" cellspacing="0" width="600" style="font-size:14px;">
		<tr>
			<th align="left">Format:</th>
			<th align="left">Offered price:</th>
		</tr>
		<tr>
			<td align="left" valign="middle">{{ContentType}}</td>
			<td align="left" valign="middle">${{Price}}</td>
		</tr>
		</table>
	</p>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		Sign in at {{DashURL}} to accept, decline or negotiate in chat.
	</p>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		All the best,<br/>
		~ The Influo Team<br/>
	</p>
</div>
`

const moderationTmpl = `
<div>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		Hey {{Name}},
	</p>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		Your influencer card for {{Platform}} has been {{Decision}}.
	</p>
	{{#Note}}
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		Moderator note: {{Note}}
	</p>
	{{/Note}}
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		All the best,<br/>
		~ The Influo Team<br/>
	</p>
</div>
`

const targetReachedTmpl = `
<div>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		Hey {{Name}},
	</p>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		Your campaign "{{CampaignTitle}}" just hit its target of {{Target}} accepted influencers.
		Remaining pending offers were withdrawn and the campaign is now paused.
	</p>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		Committed budget so far: ${{TotalBudget}}
	</p>
	<p style="font-size:14px; color:#000000; margin:0 0 12px 0;">
		All the best,<br/>
		~ The Influo Team<br/>
	</p>
</div>
`

var (
	OfferEmail         = MustacheMust(offerTmpl)
	ModerationEmail    = MustacheMust(moderationTmpl)
	TargetReachedEmail = MustacheMust(targetReachedTmpl)
)
